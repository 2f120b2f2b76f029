package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Payment : Payment Model
//
// A succeeded payment is immutable. A reversal is recorded as a new
// negative-amount payment referencing the original via parent_id, never as
// an in-place edit. (provider, provider_payment_id) is unique so that
// at-least-once webhook delivery cannot credit an invoice twice.
type Payment struct {
	ID                int64        `json:"id" bun:",pk,autoincrement"`
	OrgID             int64        `json:"org_id" bun:",notnull"`
	InvoiceID         int64        `json:"invoice_id" bun:",notnull"`
	Invoice           *Invoice     `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	ParentID          int64        `json:"parent_id,omitempty" bun:",nullzero"`
	Parent            *Payment     `json:"-" bun:"rel:belongs-to,join:parent_id=id"`
	AmountCents       int64        `json:"amount_cents" bun:",notnull"`
	FeeCents          int64        `json:"fee_cents" bun:",nullzero"`
	NetCents          int64        `json:"net_cents" bun:",nullzero"`
	Status            string       `json:"status" bun:",notnull,default:'pending'"`
	Provider          string       `json:"provider" bun:",notnull"`
	ProviderPaymentID string       `json:"provider_payment_id" bun:",nullzero"`
	IdempotencyKey    string       `json:"idempotency_key,omitempty" bun:",nullzero"`
	Method            string       `json:"method" bun:",nullzero"`
	Reference         string       `json:"reference" bun:",nullzero"`
	QboID             string       `json:"qbo_id,omitempty" bun:",nullzero"`
	CreatedAt         time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt         bun.NullTime `json:"updated_at"`
	SettledAt         bun.NullTime `json:"settled_at"`
}

func (p *Payment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		p.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Payment)(nil)

// PaymentIntent : a provider-facing pre-authorization.
// At most one live (non-terminal) intent exists per invoice.
type PaymentIntent struct {
	ID               int64        `json:"id" bun:",pk,autoincrement"`
	OrgID            int64        `json:"org_id" bun:",notnull"`
	InvoiceID        int64        `json:"invoice_id" bun:",notnull"`
	Invoice          *Invoice     `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	AmountCents      int64        `json:"amount_cents" bun:",notnull"`
	Currency         string       `json:"currency" bun:",notnull,default:'USD'"`
	Status           string       `json:"status" bun:",notnull,default:'requires_payment'"`
	Provider         string       `json:"provider" bun:",notnull"`
	ProviderIntentID string       `json:"provider_intent_id" bun:",nullzero"`
	ClientSecret     string       `json:"client_secret" bun:",nullzero"`
	IdempotencyKey   string       `json:"idempotency_key" bun:",unique,notnull"`
	ExpiresAt        bun.NullTime `json:"expires_at" bun:",nullzero"`
	CreatedAt        time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt        bun.NullTime `json:"updated_at"`
}

func (pi *PaymentIntent) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		pi.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// Live reports whether the intent is still open for payment as of now.
func (pi *PaymentIntent) Live(now time.Time) bool {
	switch pi.Status {
	case "succeeded", "canceled", "expired":
		return false
	}
	if !pi.ExpiresAt.IsZero() && pi.ExpiresAt.Time.Before(now) {
		return false
	}
	return true
}

var _ bun.BeforeAppendModelHook = (*PaymentIntent)(nil)
