package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Budget : project budget. Once status is locked its financial fields and
// line items are write-protected; the guard lives in the persistence layer
// (lib/service/budgets.go), every field-changing write against a locked
// budget fails closed.
type Budget struct {
	ID         int64         `json:"id" bun:",pk,autoincrement"`
	OrgID      int64         `json:"org_id" bun:",notnull"`
	ProjectID  int64         `json:"project_id" bun:",notnull"`
	Project    *Project      `json:"-" bun:"rel:belongs-to,join:project_id=id"`
	Name       string        `json:"name" bun:",nullzero"`
	TotalCents int64         `json:"total_cents" bun:",notnull"`
	Status     string        `json:"status" bun:",notnull,default:'open'"`
	Lines      []*BudgetLine `json:"lines" bun:"rel:has-many,join:id=budget_id"`
	CreatedAt  time.Time     `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt  bun.NullTime  `json:"updated_at"`
	LockedAt   bun.NullTime  `json:"locked_at" bun:",nullzero"`
}

func (b *Budget) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		b.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Budget)(nil)

// BudgetLine : Budget Line Model
type BudgetLine struct {
	ID          int64     `json:"id" bun:",pk,autoincrement"`
	BudgetID    int64     `json:"budget_id" bun:",notnull"`
	Budget      *Budget   `json:"-" bun:"rel:belongs-to,join:budget_id=id"`
	CostCode    string    `json:"cost_code" bun:",nullzero"`
	Description string    `json:"description" bun:",nullzero"`
	AmountCents int64     `json:"amount_cents" bun:",notnull"`
	CreatedAt   time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
