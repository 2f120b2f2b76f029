package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DrawScheduleEntry : milestone-based partial billing against a contract,
// ordered by draw_number. Paid status is derived from the linked invoice's
// status, never mutated independently.
type DrawScheduleEntry struct {
	ID                int64           `json:"id" bun:",pk,autoincrement"`
	OrgID             int64           `json:"org_id" bun:",notnull"`
	ContractID        int64           `json:"contract_id" bun:",notnull"`
	Contract          *Contract       `json:"-" bun:"rel:belongs-to,join:contract_id=id"`
	DrawNumber        int             `json:"draw_number" bun:",notnull"`
	Description       string          `json:"description" bun:",nullzero"`
	AmountCents       int64           `json:"amount_cents" bun:",nullzero"`
	PercentOfContract decimal.Decimal `json:"percent_of_contract" bun:"type:numeric(5,2),nullzero"`
	Milestone         string          `json:"milestone" bun:",nullzero"`
	Status            string          `json:"status" bun:",notnull,default:'pending'"`
	InvoiceID         int64           `json:"invoice_id,omitempty" bun:",nullzero"`
	Invoice           *Invoice        `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	InvoicedAt        bun.NullTime    `json:"invoiced_at" bun:",nullzero"`
	CreatedAt         time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

// BillableCents resolves the draw amount against the contract total.
// Percent-of-contract draws are rounded down to whole cents.
func (d *DrawScheduleEntry) BillableCents(contractTotal int64) int64 {
	if d.AmountCents > 0 {
		return d.AmountCents
	}
	if d.PercentOfContract.IsZero() {
		return 0
	}
	return d.PercentOfContract.
		Mul(decimal.NewFromInt(contractTotal)).
		Div(decimal.NewFromInt(100)).
		IntPart()
}
