package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/uptrace/bun"
)

type BudgetLineParams struct {
	CostCode    string `json:"cost_code"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
}

func (svc *BillingService) CreateBudget(ctx context.Context, orgId, projectId int64, name string, totalCents int64) (*models.Budget, error) {
	if totalCents < 0 {
		return nil, NewValidationError("budget total cannot be negative")
	}
	budget := &models.Budget{
		OrgID:      orgId,
		ProjectID:  projectId,
		Name:       name,
		TotalCents: totalCents,
		Status:     common.BudgetStatusOpen,
	}
	if _, err := svc.DB.NewInsert().Model(budget).Exec(ctx); err != nil {
		return nil, err
	}
	return budget, nil
}

func (svc *BillingService) FindBudget(ctx context.Context, orgId, budgetId int64) (*models.Budget, error) {
	var budget models.Budget
	err := svc.DB.NewSelect().
		Model(&budget).
		Relation("Lines").
		Where("budget.org_id = ? AND budget.id = ?", orgId, budgetId).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewValidationError("budget %d not found", budgetId)
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// UpdateBudget rewrites the budget's financial fields. The write is
// guarded on status in the same statement, so a budget locked between the
// read and the write still fails closed.
func (svc *BillingService) UpdateBudget(ctx context.Context, orgId, budgetId int64, name string, totalCents int64) (*models.Budget, error) {
	budget, err := svc.FindBudget(ctx, orgId, budgetId)
	if err != nil {
		return nil, err
	}
	if budget.Status == common.BudgetStatusLocked {
		return nil, NewValidationError("budget %d is locked", budgetId)
	}

	budget.Name = name
	budget.TotalCents = totalCents
	res, err := svc.DB.NewUpdate().
		Model(budget).
		Column("name", "total_cents", "updated_at").
		WherePK().
		Where("status = ?", common.BudgetStatusOpen).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, NewValidationError("budget %d is locked", budgetId)
	}
	return budget, nil
}

// AddBudgetLine appends a line to an open budget, same fail-closed guard
// as UpdateBudget.
func (svc *BillingService) AddBudgetLine(ctx context.Context, orgId, budgetId int64, params BudgetLineParams) (*models.BudgetLine, error) {
	budget, err := svc.FindBudget(ctx, orgId, budgetId)
	if err != nil {
		return nil, err
	}
	if budget.Status == common.BudgetStatusLocked {
		return nil, NewValidationError("budget %d is locked", budgetId)
	}

	line := &models.BudgetLine{
		BudgetID:    budgetId,
		CostCode:    params.CostCode,
		Description: params.Description,
		AmountCents: params.AmountCents,
	}
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// re-check under the transaction, the lock may have landed since
		// the read above
		var status string
		err := tx.NewSelect().
			Model((*models.Budget)(nil)).
			Column("status").
			Where("id = ?", budgetId).
			For("UPDATE").
			Scan(ctx, &status)
		if err != nil {
			return err
		}
		if status == common.BudgetStatusLocked {
			return NewValidationError("budget %d is locked", budgetId)
		}
		_, err = tx.NewInsert().Model(line).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// LockBudget freezes the budget. Locking is one-way here; reopening is an
// administrative action out of scope for the API surface.
func (svc *BillingService) LockBudget(ctx context.Context, orgId, budgetId int64) (*models.Budget, error) {
	budget, err := svc.FindBudget(ctx, orgId, budgetId)
	if err != nil {
		return nil, err
	}
	if budget.Status == common.BudgetStatusLocked {
		return budget, nil
	}

	budget.Status = common.BudgetStatusLocked
	budget.LockedAt = bun.NullTime{Time: time.Now()}
	if _, err = svc.DB.NewUpdate().
		Model(budget).
		Column("status", "locked_at", "updated_at").
		WherePK().
		Exec(ctx); err != nil {
		return nil, err
	}
	return budget, nil
}
