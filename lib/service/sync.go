package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/getbuildcamp/billinghub/accounting"
	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/uptrace/bun"
)

// Accounting sync queue. Invoices carry qbo_sync_status
// (unsynced|pending|synced|error); every money-affecting write flips it to
// pending and the queue drains pending rows into the accounting system.
// Each push attempt leaves a SyncHistory row, the only record the retry
// cap is judged against.

// EnqueueSync marks an invoice for the next sync pass.
func (svc *BillingService) EnqueueSync(ctx context.Context, orgId, invoiceId int64) error {
	res, err := svc.DB.NewUpdate().
		Model((*models.Invoice)(nil)).
		Set("qbo_sync_status = ?", common.SyncStatusPending).
		Where("org_id = ? AND id = ? AND status != ?", orgId, invoiceId, common.InvoiceStatusDraft).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return NewValidationError("invoice %d not found or still a draft", invoiceId)
	}
	return nil
}

// SyncPendingNow drains one batch of pending invoices. The batch is
// claimed with FOR UPDATE SKIP LOCKED and held for the duration of the
// pass, so concurrent workers never double-push the same invoice; each
// claimed row leaves the pass as synced or error, never pending.
func (svc *BillingService) SyncPendingNow(ctx context.Context) (synced, failed int, err error) {
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		invoices := []models.Invoice{}
		err := tx.NewSelect().
			Model(&invoices).
			Where("qbo_sync_status = ? AND status != ?", common.SyncStatusPending, common.InvoiceStatusDraft).
			OrderExpr("id ASC").
			Limit(svc.Config.SyncBatchLimit).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			return err
		}

		for i := range invoices {
			invoice := &invoices[i]
			pushErr := svc.syncInvoice(ctx, tx, invoice)
			var pe *ProviderError
			if errors.As(pushErr, &pe) {
				svc.Logger.Errorf("Sync failed invoice_id:%d %v", invoice.ID, pushErr)
				failed++
				continue
			}
			if pushErr != nil {
				return pushErr
			}
			synced++
		}
		return nil
	})
	return synced, failed, err
}

// RetryFailedSyncs re-enqueues errored invoices that have not exhausted the
// automatic attempt budget. Invoices at the cap stay in error until someone
// triggers a manual resync.
func (svc *BillingService) RetryFailedSyncs(ctx context.Context) (requeued int, err error) {
	invoices := []models.Invoice{}
	err = svc.DB.NewSelect().
		Model(&invoices).
		Where("qbo_sync_status = ?", common.SyncStatusError).
		OrderExpr("id ASC").
		Limit(svc.Config.SyncBatchLimit).
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	for i := range invoices {
		invoice := &invoices[i]
		attempts, err := syncAttemptCount(ctx, svc.DB, invoice.ID)
		if err != nil {
			return requeued, err
		}
		if attempts >= svc.Config.MaxSyncAttempts {
			continue
		}
		if err = svc.EnqueueSync(ctx, invoice.OrgID, invoice.ID); err != nil {
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}

// ManualResync pushes one invoice immediately, ignoring the automatic
// attempt cap. This is the escape hatch for invoices stuck in error.
func (svc *BillingService) ManualResync(ctx context.Context, orgId, invoiceId int64) (*models.Invoice, error) {
	invoice, err := svc.FindInvoice(ctx, orgId, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status == common.InvoiceStatusDraft {
		return nil, NewValidationError("invoice %d is a draft and is never synced", invoiceId)
	}
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return svc.syncInvoice(ctx, tx, invoice)
	})
	if err != nil {
		return invoice, err
	}
	return invoice, nil
}

// syncInvoice pushes one invoice and its unsynced payments, retrying once
// in-process on a transient provider failure before recording the attempt
// outcome. The invoice ends up synced or error. A ProviderError return
// means the attempt was recorded and the row is in error; any other error
// is a database failure.
func (svc *BillingService) syncInvoice(ctx context.Context, idb bun.IDB, invoice *models.Invoice) error {
	attempts, err := syncAttemptCount(ctx, idb, invoice.ID)
	if err != nil {
		return err
	}

	pushCtx, cancel := context.WithTimeout(ctx, time.Duration(svc.Config.SyncPushTimeout)*time.Second)
	defer cancel()

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1)
	var externalID string
	pushErr := backoff.Retry(func() error {
		var err error
		externalID, err = svc.AccountingClient.PushInvoice(pushCtx, invoice)
		if err != nil && !isAccountingTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, pushCtx))

	history := &models.SyncHistory{
		OrgID:     invoice.OrgID,
		InvoiceID: invoice.ID,
		Attempt:   attempts + 1,
	}
	if pushErr != nil {
		history.Result = common.SyncResultError
		history.ErrorMessage = pushErr.Error()
		invoice.QboSyncStatus = common.SyncStatusError
	} else {
		history.Result = common.SyncResultSuccess
		history.QboID = externalID
		invoice.QboID = externalID
		invoice.QboSyncStatus = common.SyncStatusSynced
		invoice.QboSyncedAt = bun.NullTime{Time: time.Now()}
	}

	if _, err = idb.NewInsert().Model(history).Exec(ctx); err != nil {
		return err
	}
	if _, err = idb.NewUpdate().
		Model(invoice).
		Column("qbo_id", "qbo_sync_status", "qbo_synced_at", "updated_at").
		WherePK().
		Exec(ctx); err != nil {
		return err
	}

	if pushErr != nil {
		svc.InvoicePubSub.Publish(EventInvoiceSyncErr, InvoiceEvent{Type: EventInvoiceSyncErr, OrgID: invoice.OrgID, Invoice: invoice})
		return &ProviderError{Op: "push invoice", Transient: isAccountingTransient(pushErr), Err: pushErr}
	}

	if err = svc.syncPayments(pushCtx, idb, invoice); err != nil {
		// payment push failures do not undo the invoice sync; the
		// payments stay unsynced and go out with the next pass
		svc.Logger.Errorf("Payment sync failed invoice_id:%d %v", invoice.ID, err)
	}
	svc.InvoicePubSub.Publish(EventInvoiceSynced, InvoiceEvent{Type: EventInvoiceSynced, OrgID: invoice.OrgID, Invoice: invoice})
	return nil
}

// syncPayments pushes the invoice's succeeded payments that have no
// external id yet.
func (svc *BillingService) syncPayments(ctx context.Context, idb bun.IDB, invoice *models.Invoice) error {
	payments := []models.Payment{}
	err := idb.NewSelect().
		Model(&payments).
		Where("invoice_id = ? AND status = ? AND qbo_id IS NULL", invoice.ID, common.PaymentStatusSucceeded).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return err
	}
	for i := range payments {
		payment := &payments[i]
		externalID, err := svc.AccountingClient.PushPayment(ctx, payment, invoice.QboID)
		if err != nil {
			return err
		}
		payment.QboID = externalID
		if _, err = idb.NewUpdate().Model(payment).Column("qbo_id", "updated_at").WherePK().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func syncAttemptCount(ctx context.Context, idb bun.IDB, invoiceId int64) (int, error) {
	return idb.NewSelect().
		Model((*models.SyncHistory)(nil)).
		Where("invoice_id = ?", invoiceId).
		Count(ctx)
}

func isAccountingTransient(err error) bool {
	var ae *accounting.Error
	if errors.As(err, &ae) {
		return ae.Transient()
	}
	return true
}

// SyncHistoryFor lists the attempt trail for one invoice, newest first.
func (svc *BillingService) SyncHistoryFor(ctx context.Context, orgId, invoiceId int64) ([]models.SyncHistory, error) {
	history := []models.SyncHistory{}
	err := svc.DB.NewSelect().
		Model(&history).
		Where("org_id = ? AND invoice_id = ?", orgId, invoiceId).
		OrderExpr("id DESC").
		Scan(ctx)
	return history, err
}
