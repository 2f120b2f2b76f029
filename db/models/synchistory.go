package models

import (
	"time"
)

// SyncHistory : one accounting sync attempt for an invoice. The provider
// error body is stored verbatim for operator diagnosis and is never shown
// to end users.
type SyncHistory struct {
	ID           int64     `json:"id" bun:",pk,autoincrement"`
	OrgID        int64     `json:"org_id" bun:",notnull"`
	InvoiceID    int64     `json:"invoice_id" bun:",notnull"`
	Invoice      *Invoice  `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	Attempt      int       `json:"attempt" bun:",notnull"`
	Result       string    `json:"result" bun:",notnull"`
	QboID        string    `json:"qbo_id,omitempty" bun:",nullzero"`
	ErrorMessage string    `json:"error_message,omitempty" bun:",nullzero"`
	CreatedAt    time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
