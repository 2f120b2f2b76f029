package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Invoice : Invoice Model
//
// The invoice row is the single point of truth for balance and status.
// Payments, late fee applications and retainage entries are append-mostly
// fact tables that are read to recompute the invoice's derived fields.
type Invoice struct {
	ID              int64           `json:"id" bun:",pk,autoincrement"`
	OrgID           int64           `json:"org_id" bun:",notnull"`
	Organization    *Organization   `json:"-" bun:"rel:belongs-to,join:org_id=id"`
	ProjectID       int64           `json:"project_id" bun:",nullzero"`
	Project         *Project        `json:"-" bun:"rel:belongs-to,join:project_id=id"`
	ContractID      int64           `json:"contract_id" bun:",nullzero"`
	Contract        *Contract       `json:"-" bun:"rel:belongs-to,join:contract_id=id"`
	ContactID       int64           `json:"contact_id" bun:",nullzero"`
	Contact         *Contact        `json:"-" bun:"rel:belongs-to,join:contact_id=id"`
	Number          string          `json:"number" bun:",nullzero"`
	Memo            string          `json:"memo" bun:",nullzero"`
	Currency        string          `json:"currency" bun:",notnull,default:'USD'"`
	TotalCents      int64           `json:"total_cents" bun:",notnull"`
	BalanceDueCents int64           `json:"balance_due_cents" bun:",notnull"`
	TaxRate         decimal.Decimal `json:"tax_rate" bun:"type:numeric(5,2),nullzero"`
	Status          string          `json:"status" bun:",notnull,default:'draft'"`
	IssueDate       bun.NullTime    `json:"issue_date" bun:",nullzero"`
	DueDate         bun.NullTime    `json:"due_date" bun:",nullzero"`
	QboID           string          `json:"qbo_id" bun:",nullzero"`
	QboSyncStatus   string          `json:"qbo_sync_status" bun:",notnull,default:'unsynced'"`
	QboSyncedAt     bun.NullTime    `json:"qbo_synced_at" bun:",nullzero"`
	Version         int64           `json:"version" bun:",notnull,default:1"`
	Lines           []*InvoiceLine  `json:"lines" bun:"rel:has-many,join:id=invoice_id"`
	CreatedAt       time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       bun.NullTime    `json:"updated_at"`
	SentAt          bun.NullTime    `json:"sent_at"`
	PaidAt          bun.NullTime    `json:"paid_at"`
	VoidedAt        bun.NullTime    `json:"voided_at"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// SubtotalCents is the sum of the extended line amounts before tax.
func (i *Invoice) SubtotalCents() int64 {
	var sum int64
	for _, line := range i.Lines {
		sum += line.AmountCents()
	}
	return sum
}

var _ bun.BeforeAppendModelHook = (*Invoice)(nil)

// InvoiceLine : Invoice Line Model
type InvoiceLine struct {
	ID             int64     `json:"id" bun:",pk,autoincrement"`
	InvoiceID      int64     `json:"invoice_id" bun:",notnull"`
	Invoice        *Invoice  `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	Kind           string    `json:"kind" bun:",notnull,default:'item'"`
	Description    string    `json:"description" bun:",nullzero"`
	Quantity       int64     `json:"quantity" bun:",notnull,default:1"`
	UnitPriceCents int64     `json:"unit_price_cents" bun:",notnull"`
	CostCode       string    `json:"cost_code" bun:",nullzero"`
	CreatedAt      time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

// AmountCents is the extended amount of the line.
func (l *InvoiceLine) AmountCents() int64 {
	return l.Quantity * l.UnitPriceCents
}
