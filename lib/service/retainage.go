package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/uptrace/bun"
)

// RetainageLedger lists the withheld entries for a contract together with
// the running held total.
func (svc *BillingService) RetainageLedger(ctx context.Context, orgId, contractId int64) ([]models.RetainageEntry, int64, error) {
	entries := []models.RetainageEntry{}
	err := svc.DB.NewSelect().
		Model(&entries).
		Where("org_id = ? AND contract_id = ?", orgId, contractId).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}
	var held int64
	for _, e := range entries {
		if e.Status == common.RetainageStatusHeld {
			held += e.AmountCents
		}
	}
	return entries, held, nil
}

// ReleaseRetainage releases held entries for a contract by billing them
// through a brand-new invoice. Each entry releases in full, exactly once;
// partial release of an entry is rejected. The historical withholding
// invoices are never amended.
func (svc *BillingService) ReleaseRetainage(ctx context.Context, orgId, contractId int64, entryIds []int64) (*models.Invoice, error) {
	if len(entryIds) == 0 {
		return nil, NewValidationError("no retainage entries to release")
	}

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

	entries := []models.RetainageEntry{}
	err = svc.DB.NewSelect().
		Model(&entries).
		Where("org_id = ? AND contract_id = ? AND id IN (?)", orgId, contractId, bun.In(entryIds)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) != len(entryIds) {
		return nil, NewValidationError("some retainage entries were not found on contract %d", contractId)
	}
	var totalCents int64
	for _, e := range entries {
		if e.Status != common.RetainageStatusHeld {
			return nil, NewValidationError("retainage entry %d is %s, only held entries can be released", e.ID, e.Status)
		}
		totalCents += e.AmountCents
	}
	if totalCents <= 0 {
		return nil, NewValidationError("retainage entries sum to zero")
	}

	invoice := &models.Invoice{
		OrgID:           orgId,
		ProjectID:       contract.ProjectID,
		ContractID:      contractId,
		ContactID:       contract.ContactID,
		Number:          fmt.Sprintf("RET-%d-%d", contractId, time.Now().Unix()),
		Memo:            "Retainage release",
		Currency:        svc.Config.DefaultCurrency,
		Status:          common.InvoiceStatusDraft,
		TotalCents:      totalCents,
		BalanceDueCents: totalCents,
		QboSyncStatus:   common.SyncStatusPending,
	}
	line := &models.InvoiceLine{
		Kind:           common.LineKindRetainageRelease,
		Description:    "Retainage release",
		Quantity:       1,
		UnitPriceCents: totalCents,
	}

	// The guarded update releases each entry only if it is still held, so
	// two concurrent releases of the same entry cannot both bill it.
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(invoice).Exec(ctx); err != nil {
			return err
		}
		line.InvoiceID = invoice.ID
		if _, err := tx.NewInsert().Model(line).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewUpdate().
			Model((*models.RetainageEntry)(nil)).
			Set("status = ?", common.RetainageStatusReleased).
			Set("release_invoice_id = ?", invoice.ID).
			Set("released_at = ?", time.Now()).
			Where("id IN (?) AND status = ?", bun.In(entryIds), common.RetainageStatusHeld).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected != int64(len(entryIds)) {
			return &ConflictError{Resource: "retainage", ID: contractId}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invoice.Lines = []*models.InvoiceLine{line}
	return invoice, nil
}
