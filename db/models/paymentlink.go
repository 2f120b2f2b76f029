package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PaymentLink : short-lived token granting bounded access to pay one invoice.
// Only the sha256 hash of the token is stored.
type PaymentLink struct {
	ID        int64        `json:"id" bun:",pk,autoincrement"`
	OrgID     int64        `json:"org_id" bun:",notnull"`
	InvoiceID int64        `json:"invoice_id" bun:",notnull"`
	Invoice   *Invoice     `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	TokenHash string       `json:"-" bun:",unique,notnull"`
	MaxUses   int          `json:"max_uses" bun:",notnull,default:1"`
	UsedCount int          `json:"used_count" bun:",notnull,default:0"`
	ExpiresAt bun.NullTime `json:"expires_at" bun:",nullzero"`
	CreatedAt time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

// Usable reports whether the link may still be consumed as of now.
func (pl *PaymentLink) Usable(now time.Time) bool {
	if pl.UsedCount >= pl.MaxUses {
		return false
	}
	if !pl.ExpiresAt.IsZero() && pl.ExpiresAt.Time.Before(now) {
		return false
	}
	return true
}
