package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RetainageEntry : a contractually withheld amount. Transitions
// held -> released exactly once; the released amount equals the held
// amount (partial release is not modeled). The release bills through a
// brand-new invoice (release_invoice_id), the original invoice is never
// amended.
type RetainageEntry struct {
	ID               int64        `json:"id" bun:",pk,autoincrement"`
	OrgID            int64        `json:"org_id" bun:",notnull"`
	ContractID       int64        `json:"contract_id" bun:",notnull"`
	Contract         *Contract    `json:"-" bun:"rel:belongs-to,join:contract_id=id"`
	InvoiceID        int64        `json:"invoice_id,omitempty" bun:",nullzero"`
	Invoice          *Invoice     `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	AmountCents      int64        `json:"amount_cents" bun:",notnull"`
	Status           string       `json:"status" bun:",notnull,default:'held'"`
	ReleaseInvoiceID int64        `json:"release_invoice_id,omitempty" bun:",nullzero"`
	HeldAt           time.Time    `json:"held_at" bun:",nullzero,notnull,default:current_timestamp"`
	ReleasedAt       bun.NullTime `json:"released_at" bun:",nullzero"`
}
