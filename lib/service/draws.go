package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type DrawEntryParams struct {
	DrawNumber        int             `json:"draw_number" validate:"gte=1"`
	Description       string          `json:"description"`
	AmountCents       int64           `json:"amount_cents" validate:"gte=0"`
	PercentOfContract decimal.Decimal `json:"percent_of_contract"`
	Milestone         string          `json:"milestone"`
}

// CreateDrawSchedule replaces the pending schedule for a contract. Draws
// that were already billed are kept as-is; only pending entries may be
// rewritten. A schedule summing past the contract total is accepted with a
// warning logged, since change orders routinely push work beyond the
// original contract value.
func (svc *BillingService) CreateDrawSchedule(ctx context.Context, orgId, contractId int64, entries []DrawEntryParams) ([]models.DrawScheduleEntry, error) {
	var contract models.Contract
	err := svc.DB.NewSelect().
		Model(&contract).
		Where("org_id = ? AND id = ?", orgId, contractId).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewValidationError("contract %d not found", contractId)
	}
	if err != nil {
		return nil, err
	}

	seen := map[int]bool{}
	var scheduled int64
	rows := make([]*models.DrawScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.AmountCents > 0 && !e.PercentOfContract.IsZero() {
			return nil, NewValidationError("draw %d: set an amount or a percent, not both", e.DrawNumber)
		}
		if e.AmountCents == 0 && e.PercentOfContract.IsZero() {
			return nil, NewValidationError("draw %d: needs an amount or a percent", e.DrawNumber)
		}
		if seen[e.DrawNumber] {
			return nil, NewValidationError("draw number %d appears twice", e.DrawNumber)
		}
		seen[e.DrawNumber] = true

		row := &models.DrawScheduleEntry{
			OrgID:             orgId,
			ContractID:        contractId,
			DrawNumber:        e.DrawNumber,
			Description:       e.Description,
			AmountCents:       e.AmountCents,
			PercentOfContract: e.PercentOfContract,
			Milestone:         e.Milestone,
			Status:            common.DrawStatusPending,
		}
		scheduled += row.BillableCents(contract.TotalCents)
		rows = append(rows, row)
	}
	if scheduled > contract.TotalCents {
		svc.Logger.Infof("Draw schedule for contract %d sums to %d against contract total %d", contractId, scheduled, contract.TotalCents)
	}

	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.DrawScheduleEntry)(nil)).
			Where("contract_id = ? AND status = ?", contractId, common.DrawStatusPending).
			Exec(ctx); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return svc.DrawSchedule(ctx, orgId, contractId)
}

// DrawSchedule lists the contract's draws in order, with derived payment
// status resolved against the linked invoices.
func (svc *BillingService) DrawSchedule(ctx context.Context, orgId, contractId int64) ([]models.DrawScheduleEntry, error) {
	entries := []models.DrawScheduleEntry{}
	err := svc.DB.NewSelect().
		Model(&entries).
		Relation("Invoice").
		Where("draw_schedule_entry.org_id = ? AND draw_schedule_entry.contract_id = ?", orgId, contractId).
		OrderExpr("draw_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Status = drawStatus(&entries[i])
	}
	return entries, nil
}

// drawStatus derives the entry's status from its invoice. The stored
// status only records whether the draw was billed; payment truth always
// comes from the invoice.
func drawStatus(entry *models.DrawScheduleEntry) string {
	if entry.InvoiceID == 0 || entry.Invoice == nil {
		if entry.Status == common.DrawStatusPending {
			return common.DrawStatusPending
		}
		return entry.Status
	}
	switch entry.Invoice.Status {
	case common.InvoiceStatusPaid:
		return common.DrawStatusPaid
	case common.InvoiceStatusPartial:
		return common.DrawStatusPartial
	default:
		return common.DrawStatusInvoiced
	}
}

// BillDraw turns one pending draw into a draft invoice for the draw's
// billable amount, applying the contract's retainage withholding the same
// way a hand-created invoice would.
func (svc *BillingService) BillDraw(ctx context.Context, orgId, drawId int64) (*models.Invoice, error) {
	var entry models.DrawScheduleEntry
	err := svc.DB.NewSelect().
		Model(&entry).
		Relation("Contract").
		Where("draw_schedule_entry.org_id = ? AND draw_schedule_entry.id = ?", orgId, drawId).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewValidationError("draw %d not found", drawId)
	}
	if err != nil {
		return nil, err
	}
	if entry.Status != common.DrawStatusPending || entry.InvoiceID != 0 {
		return nil, NewValidationError("draw %d was already billed", drawId)
	}
	if entry.Contract == nil {
		return nil, NewValidationError("draw %d has no contract", drawId)
	}

	amount := entry.BillableCents(entry.Contract.TotalCents)
	if amount <= 0 {
		return nil, NewValidationError("draw %d resolves to a zero amount", drawId)
	}

	description := entry.Description
	if description == "" {
		description = fmt.Sprintf("Draw %d", entry.DrawNumber)
	}
	invoice, err := svc.CreateInvoice(ctx, orgId, CreateInvoiceParams{
		ProjectID:  entry.Contract.ProjectID,
		ContractID: entry.ContractID,
		ContactID:  entry.Contract.ContactID,
		Number:     fmt.Sprintf("DRAW-%d-%d", entry.ContractID, entry.DrawNumber),
		Memo:       description,
		Lines: []InvoiceLineParams{{
			Description:    description,
			Quantity:       1,
			UnitPriceCents: amount,
		}},
	})
	if err != nil {
		return nil, err
	}

	entry.Status = common.DrawStatusInvoiced
	entry.InvoiceID = invoice.ID
	entry.InvoicedAt = bun.NullTime{Time: time.Now()}
	res, err := svc.DB.NewUpdate().
		Model(&entry).
		WherePK().
		Where("invoice_id IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, &ConflictError{Resource: "draw", ID: drawId}
	}
	return invoice, nil
}
