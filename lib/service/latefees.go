package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type LateFeeRuleParams struct {
	ProjectID       int64           `json:"project_id"`
	Strategy        string          `json:"strategy" validate:"oneof=fixed percent"`
	AmountCents     int64           `json:"amount_cents" validate:"gte=0"`
	Percent         decimal.Decimal `json:"percent"`
	GraceDays       int             `json:"grace_days" validate:"gte=0"`
	RepeatDays      int             `json:"repeat_days" validate:"gte=0"`
	MaxApplications int             `json:"max_applications" validate:"gte=0"`
	CapCents        int64           `json:"cap_cents" validate:"gte=0"`
}

func (svc *BillingService) CreateLateFeeRule(ctx context.Context, orgId int64, params LateFeeRuleParams) (*models.LateFeeRule, error) {
	switch params.Strategy {
	case common.LateFeeStrategyFixed:
		if params.AmountCents <= 0 {
			return nil, NewValidationError("fixed late fee rule needs a positive amount")
		}
	case common.LateFeeStrategyPercent:
		if params.Percent.Sign() <= 0 {
			return nil, NewValidationError("percent late fee rule needs a positive percent")
		}
	default:
		return nil, NewValidationError("unknown late fee strategy %q", params.Strategy)
	}

	rule := &models.LateFeeRule{
		OrgID:           orgId,
		ProjectID:       params.ProjectID,
		Strategy:        params.Strategy,
		AmountCents:     params.AmountCents,
		Percent:         params.Percent,
		GraceDays:       params.GraceDays,
		RepeatDays:      params.RepeatDays,
		MaxApplications: params.MaxApplications,
		CapCents:        params.CapCents,
		Active:          true,
	}
	if _, err := svc.DB.NewInsert().Model(rule).Exec(ctx); err != nil {
		return nil, err
	}
	return rule, nil
}

func (svc *BillingService) DeactivateLateFeeRule(ctx context.Context, orgId, ruleId int64) error {
	res, err := svc.DB.NewUpdate().
		Model((*models.LateFeeRule)(nil)).
		Set("active = false").
		Where("org_id = ? AND id = ?", orgId, ruleId).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return NewValidationError("late fee rule %d not found", ruleId)
	}
	return nil
}

// ApplyLateFees runs every active rule against every overdue invoice as of
// asOf and returns the number of new applications. The pass is driven by
// derived application numbers, so running it hourly, daily or after a week
// of downtime converges on the same set of application rows.
func (svc *BillingService) ApplyLateFees(ctx context.Context, asOf time.Time) (applied int, err error) {
	rules := []models.LateFeeRule{}
	err = svc.DB.NewSelect().
		Model(&rules).
		Where("active = true").
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	invoices := []models.Invoice{}
	err = svc.DB.NewSelect().
		Model(&invoices).
		Where("status IN (?)", bun.In([]string{common.InvoiceStatusSent, common.InvoiceStatusPartial})).
		Where("due_date IS NOT NULL AND due_date < ?", truncateToDay(asOf)).
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	for i := range invoices {
		invoice := &invoices[i]
		for j := range rules {
			rule := &rules[j]
			if rule.OrgID != invoice.OrgID {
				continue
			}
			if rule.ProjectID != 0 && rule.ProjectID != invoice.ProjectID {
				continue
			}
			n, err := svc.applyRuleToInvoice(ctx, rule, invoice, asOf)
			if err != nil {
				svc.Logger.Errorf("Late fee application failed invoice_id:%d rule_id:%d %v", invoice.ID, rule.ID, err)
				continue
			}
			applied += n
		}
	}
	return applied, nil
}

// applyRuleToInvoice catches the invoice up to the application number the
// rule implies for asOf. Already-recorded applications are skipped via the
// unique (invoice_id, rule_id, application_number) key.
func (svc *BillingService) applyRuleToInvoice(ctx context.Context, rule *models.LateFeeRule, invoice *models.Invoice, asOf time.Time) (applied int, err error) {
	due := invoice.DueDate.Time
	target := applicationNumber(due, asOf, rule.GraceDays, rule.RepeatDays)
	if target == 0 {
		return 0, nil
	}
	if rule.MaxApplications > 0 && target > rule.MaxApplications {
		target = rule.MaxApplications
	}

	for n := 1; n <= target; n++ {
		ok, err := svc.applyOnce(ctx, rule, invoice, n)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

// applyOnce records application n of the rule against the invoice, adds
// the fee line and bumps the totals, all in one transaction. Returns false
// without error when that application already exists.
func (svc *BillingService) applyOnce(ctx context.Context, rule *models.LateFeeRule, invoice *models.Invoice, n int) (bool, error) {
	fee := feeAmount(rule, invoice.BalanceDueCents)
	if fee <= 0 {
		return false, nil
	}
	if rule.CapCents > 0 {
		charged, err := svc.chargedSoFar(ctx, invoice.ID, rule.ID)
		if err != nil {
			return false, err
		}
		if charged >= rule.CapCents {
			return false, nil
		}
		if charged+fee > rule.CapCents {
			fee = rule.CapCents - charged
		}
	}

	var inserted bool
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		application := &models.LateFeeApplication{
			OrgID:             invoice.OrgID,
			InvoiceID:         invoice.ID,
			RuleID:            rule.ID,
			ApplicationNumber: n,
			FeeCents:          fee,
		}
		res, err := tx.NewInsert().
			Model(application).
			On("CONFLICT (invoice_id, rule_id, application_number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil
		}
		inserted = true

		line := &models.InvoiceLine{
			InvoiceID:      invoice.ID,
			Kind:           common.LineKindLateFee,
			Description:    fmt.Sprintf("Late fee (%d)", n),
			Quantity:       1,
			UnitPriceCents: fee,
		}
		if _, err = tx.NewInsert().Model(line).Exec(ctx); err != nil {
			return err
		}
		application.LineID = line.ID
		if _, err = tx.NewUpdate().Model(application).Column("line_id").WherePK().Exec(ctx); err != nil {
			return err
		}

		invoice.TotalCents += fee
		invoice.BalanceDueCents += fee
		invoice.QboSyncStatus = common.SyncStatusPending

		oldVersion := invoice.Version
		invoice.Version++
		ures, err := tx.NewUpdate().
			Model(invoice).
			WherePK().
			Where("version = ?", oldVersion).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := ures.RowsAffected(); affected == 0 {
			return &ConflictError{Resource: "invoice", ID: invoice.ID}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if inserted {
		svc.InvoicePubSub.Publish(EventLateFeeApplied, InvoiceEvent{Type: EventLateFeeApplied, OrgID: invoice.OrgID, Invoice: invoice})
	}
	return inserted, nil
}

func (svc *BillingService) chargedSoFar(ctx context.Context, invoiceId, ruleId int64) (int64, error) {
	var total int64
	err := svc.DB.NewSelect().
		Model((*models.LateFeeApplication)(nil)).
		ColumnExpr("COALESCE(SUM(fee_cents), 0)").
		Where("invoice_id = ? AND rule_id = ?", invoiceId, ruleId).
		Scan(ctx, &total)
	return total, err
}

// applicationNumber computes how many applications the rule implies for an
// invoice due on due when evaluated at asOf. 0 means not yet chargeable;
// 1 is due once the grace period lapses, and each further repeat period
// adds one. Day granularity: partial days never count.
func applicationNumber(due, asOf time.Time, graceDays, repeatDays int) int {
	if due.IsZero() {
		return 0
	}
	days := daysBetween(due, asOf)
	if days == 0 || days < graceDays {
		return 0
	}
	if repeatDays <= 0 {
		return 1
	}
	// The first charge lands on the first chargeable day: day graceDays,
	// or day one when there is no grace. Each repeat period after that
	// day adds one, so charge n falls on firstDay + (n-1)*repeatDays.
	firstDay := graceDays
	if firstDay == 0 {
		firstDay = 1
	}
	return 1 + (days-firstDay)/repeatDays
}

// daysBetween counts whole calendar days from a to b, non-negative.
// Dates are compared in UTC so a DST transition between them cannot
// shorten the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	if bu.Before(au) {
		return 0
	}
	return int(bu.Sub(au) / (24 * time.Hour))
}

// feeAmount computes one application's fee. Percent rules charge on the
// balance due at application time, never on the original total.
func feeAmount(rule *models.LateFeeRule, balanceCents int64) int64 {
	switch rule.Strategy {
	case common.LateFeeStrategyFixed:
		return rule.AmountCents
	case common.LateFeeStrategyPercent:
		if balanceCents <= 0 {
			return 0
		}
		return decimal.NewFromInt(balanceCents).
			Mul(rule.Percent).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	}
	return 0
}
