package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LateFeeRule : rule describing when and how a late fee is charged on an
// overdue invoice. Scoped to an org, optionally narrowed to one project.
type LateFeeRule struct {
	ID              int64           `json:"id" bun:",pk,autoincrement"`
	OrgID           int64           `json:"org_id" bun:",notnull"`
	ProjectID       int64           `json:"project_id,omitempty" bun:",nullzero"`
	Strategy        string          `json:"strategy" bun:",notnull"`
	AmountCents     int64           `json:"amount_cents" bun:",nullzero"`
	Percent         decimal.Decimal `json:"percent" bun:"type:numeric(5,2),nullzero"`
	GraceDays       int             `json:"grace_days" bun:",notnull,default:0"`
	RepeatDays      int             `json:"repeat_days" bun:",nullzero"`
	MaxApplications int             `json:"max_applications" bun:",nullzero"`
	CapCents        int64           `json:"cap_cents" bun:",nullzero"`
	Active          bool            `json:"active" bun:",notnull,default:true"`
	CreatedAt       time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

// LateFeeApplication : the fact "rule R applied to invoice I for period N".
// Unique on (invoice_id, rule_id, application_number) which is what makes
// scheduled re-runs safe.
type LateFeeApplication struct {
	ID                int64        `json:"id" bun:",pk,autoincrement"`
	OrgID             int64        `json:"org_id" bun:",notnull"`
	InvoiceID         int64        `json:"invoice_id" bun:",notnull"`
	Invoice           *Invoice     `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	RuleID            int64        `json:"rule_id" bun:",notnull"`
	Rule              *LateFeeRule `json:"-" bun:"rel:belongs-to,join:rule_id=id"`
	ApplicationNumber int          `json:"application_number" bun:",notnull"`
	FeeCents          int64        `json:"fee_cents" bun:",notnull"`
	LineID            int64        `json:"line_id" bun:",nullzero"`
	AppliedAt         time.Time    `json:"applied_at" bun:",nullzero,notnull,default:current_timestamp"`
}
