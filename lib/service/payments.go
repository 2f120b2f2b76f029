package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ReconciliationResult reports what a provider event did to the ledger.
type ReconciliationResult struct {
	Payment       *models.Payment `json:"payment,omitempty"`
	InvoiceStatus string          `json:"invoice_status"`
	BalanceCents  int64           `json:"balance_due_cents"`
	Duplicate     bool            `json:"duplicate"`
}

// ReconcileProviderEvent is the single entry point for all provider
// webhook and callback data. The provider delivers at least once, so this
// must be safe to invoke repeatedly with the same event: the unique key
// (provider, provider_payment_id) turns a repeat into a no-op.
func (svc *BillingService) ReconcileProviderEvent(ctx context.Context, event *provider.Event) (*ReconciliationResult, error) {
	// A payment row for this provider event means a previous delivery got
	// through. Status-only refinements update the row, settled payments
	// are never re-credited.
	var existing models.Payment
	err := svc.DB.NewSelect().
		Model(&existing).
		Where("provider = ? AND provider_payment_id = ?", event.Provider, event.ProviderPaymentID).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return svc.reconcileExisting(ctx, &existing, event)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	intent, err := svc.findIntentForEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	invoice, err := svc.FindInvoice(ctx, intent.OrgID, intent.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == common.InvoiceStatusPaid {
		return nil, &AlreadyReconciledError{Provider: event.Provider, ProviderPaymentID: event.ProviderPaymentID}
	}
	if invoice.Status == common.InvoiceStatusVoid {
		return nil, NewValidationError("invoice %d is void and cannot accept payments", invoice.ID)
	}
	if event.AmountCents != intent.AmountCents {
		svc.Logger.Errorf("Amount mismatch invoice_id:%v provider_payment_id:%s got:%d want:%d",
			invoice.ID, event.ProviderPaymentID, event.AmountCents, intent.AmountCents)
		// The event is kept on the ledger in needs_review so an operator
		// can resolve it. The row never credits the invoice, and repeat
		// deliveries land on the unique key as no-ops.
		review := &models.Payment{
			OrgID:             invoice.OrgID,
			InvoiceID:         invoice.ID,
			AmountCents:       event.AmountCents,
			FeeCents:          event.FeeCents,
			NetCents:          event.AmountCents - event.FeeCents,
			Provider:          event.Provider,
			ProviderPaymentID: event.ProviderPaymentID,
			Method:            methodFromDetail(event.Detail),
			Status:            common.PaymentStatusNeedsReview,
			Reference:         fmt.Sprintf("amount mismatch: intent %s expected %d cents", intent.IdempotencyKey, intent.AmountCents),
		}
		_, insertErr := svc.DB.NewInsert().
			Model(review).
			On("CONFLICT (provider, provider_payment_id) WHERE provider_payment_id IS NOT NULL DO NOTHING").
			Exec(ctx)
		if insertErr != nil {
			return nil, insertErr
		}
		return nil, &AmountMismatchError{
			InvoiceID:         invoice.ID,
			ProviderPaymentID: event.ProviderPaymentID,
			EventAmountCents:  event.AmountCents,
			IntentAmountCents: intent.AmountCents,
		}
	}

	payment := &models.Payment{
		OrgID:             invoice.OrgID,
		InvoiceID:         invoice.ID,
		AmountCents:       event.AmountCents,
		FeeCents:          event.FeeCents,
		NetCents:          event.AmountCents - event.FeeCents,
		Provider:          event.Provider,
		ProviderPaymentID: event.ProviderPaymentID,
		Method:            methodFromDetail(event.Detail),
		Status:            paymentStatusFromEvent(event.Status),
	}
	if payment.Status == common.PaymentStatusSucceeded {
		settledAt := event.OccurredAt
		if settledAt.IsZero() {
			settledAt = time.Now()
		}
		payment.SettledAt = bun.NullTime{Time: settledAt}
	}

	// The payment insert, the intent update and the invoice
	// balance/status write commit as one transaction; there is no window
	// where a payment exists but the invoice shows a stale balance.
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(payment).
			On("CONFLICT (provider, provider_payment_id) WHERE provider_payment_id IS NOT NULL DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			// concurrent delivery of the same event won the race
			return &AlreadyReconciledError{Provider: event.Provider, ProviderPaymentID: event.ProviderPaymentID}
		}

		intent.Status = intentStatusFromEvent(event.Status)
		if _, err = tx.NewUpdate().Model(intent).WherePK().Exec(ctx); err != nil {
			return err
		}

		if payment.Status != common.PaymentStatusSucceeded {
			return nil
		}
		return svc.applyPaymentsToInvoice(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	if payment.Status == common.PaymentStatusSucceeded {
		svc.InvoicePubSub.Publish(EventPaymentReceived, InvoiceEvent{
			Type:    EventPaymentReceived,
			OrgID:   invoice.OrgID,
			Invoice: invoice,
			Payment: payment,
		})
		if invoice.Status == common.InvoiceStatusPaid {
			svc.InvoicePubSub.Publish(EventInvoicePaid, InvoiceEvent{Type: EventInvoicePaid, OrgID: invoice.OrgID, Invoice: invoice})
		}
	}

	return &ReconciliationResult{
		Payment:       payment,
		InvoiceStatus: invoice.Status,
		BalanceCents:  invoice.BalanceDueCents,
	}, nil
}

// reconcileExisting refines the status of a payment we already know about.
// It never re-credits the balance: a settled payment stays settled, only a
// pending payment may move to its terminal status.
func (svc *BillingService) reconcileExisting(ctx context.Context, payment *models.Payment, event *provider.Event) (*ReconciliationResult, error) {
	newStatus := paymentStatusFromEvent(event.Status)
	if payment.Status == newStatus || payment.Status != common.PaymentStatusPending {
		return nil, &AlreadyReconciledError{Provider: event.Provider, ProviderPaymentID: event.ProviderPaymentID}
	}

	invoice, err := svc.FindInvoice(ctx, payment.OrgID, payment.InvoiceID)
	if err != nil {
		return nil, err
	}

	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		payment.Status = newStatus
		if newStatus == common.PaymentStatusSucceeded {
			payment.SettledAt = bun.NullTime{Time: time.Now()}
		}
		if _, err := tx.NewUpdate().Model(payment).WherePK().Exec(ctx); err != nil {
			return err
		}
		if newStatus != common.PaymentStatusSucceeded {
			return nil
		}
		return svc.applyPaymentsToInvoice(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return &ReconciliationResult{
		Payment:       payment,
		InvoiceStatus: invoice.Status,
		BalanceCents:  invoice.BalanceDueCents,
	}, nil
}

// findIntentForEvent locates the open intent the event settles. An intent
// past its expiry is finalized as expired on observation, never left live.
func (svc *BillingService) findIntentForEvent(ctx context.Context, event *provider.Event) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := svc.DB.NewSelect().
		Model(&intent).
		Where("provider = ? AND provider_intent_id = ?", event.Provider, event.ProviderIntentID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewValidationError("no intent found for provider intent %s", event.ProviderIntentID)
	}
	if err != nil {
		return nil, err
	}
	if !intent.Live(time.Now()) {
		if intent.Status != common.IntentStatusExpired && intent.Status != common.IntentStatusSucceeded && intent.Status != common.IntentStatusCanceled {
			intent.Status = common.IntentStatusExpired
			if _, err = svc.DB.NewUpdate().Model(&intent).WherePK().Exec(ctx); err != nil {
				return nil, err
			}
		}
		return nil, NewValidationError("intent %s is no longer live", intent.IdempotencyKey)
	}
	return &intent, nil
}

// RecordManualPayment records money received outside the payment provider
// (check, cash, ACH reference) and settles it immediately.
func (svc *BillingService) RecordManualPayment(ctx context.Context, orgId, invoiceId, amountCents int64, method, reference string) (*models.Payment, error) {
	if amountCents <= 0 {
		return nil, NewValidationError("payment amount must be positive")
	}
	invoice, err := svc.FindInvoice(ctx, orgId, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status != common.InvoiceStatusSent && invoice.Status != common.InvoiceStatusPartial {
		return nil, NewValidationError("invoice %d is %s; only sent or partially paid invoices accept payments", invoiceId, invoice.Status)
	}
	if amountCents > invoice.BalanceDueCents {
		return nil, NewValidationError("payment of %d exceeds balance due of %d", amountCents, invoice.BalanceDueCents)
	}

	payment := &models.Payment{
		OrgID:          orgId,
		InvoiceID:      invoiceId,
		AmountCents:    amountCents,
		Provider:       common.PaymentProviderManual,
		Method:         method,
		Reference:      reference,
		IdempotencyKey: uuid.NewString(),
		Status:         common.PaymentStatusSucceeded,
		SettledAt:      bun.NullTime{Time: time.Now()},
	}

	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(payment).Exec(ctx); err != nil {
			return err
		}
		return svc.applyPaymentsToInvoice(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	svc.InvoicePubSub.Publish(EventPaymentReceived, InvoiceEvent{
		Type:    EventPaymentReceived,
		OrgID:   orgId,
		Invoice: invoice,
		Payment: payment,
	})
	return payment, nil
}

// ReversePayment records a reversal as a new negative-amount payment
// linked to the original. Succeeded payments are immutable; paid and void
// invoices need a credit note instead, which is out of scope here.
func (svc *BillingService) ReversePayment(ctx context.Context, orgId, paymentId int64, reference string) (*models.Payment, error) {
	var original models.Payment
	err := svc.DB.NewSelect().
		Model(&original).
		Where("org_id = ? AND id = ?", orgId, paymentId).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if original.Status != common.PaymentStatusSucceeded {
		return nil, NewValidationError("payment %d is %s and cannot be reversed", paymentId, original.Status)
	}
	if original.AmountCents <= 0 {
		return nil, NewValidationError("payment %d is itself a reversal", paymentId)
	}

	invoice, err := svc.FindInvoice(ctx, orgId, original.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == common.InvoiceStatusPaid || invoice.Status == common.InvoiceStatusVoid {
		return nil, NewValidationError("invoice %d is %s, reversing requires a credit note", invoice.ID, invoice.Status)
	}

	reversal := &models.Payment{
		OrgID:          orgId,
		InvoiceID:      original.InvoiceID,
		ParentID:       original.ID,
		AmountCents:    -original.AmountCents,
		Provider:       original.Provider,
		Method:         original.Method,
		Reference:      reference,
		IdempotencyKey: uuid.NewString(),
		Status:         common.PaymentStatusSucceeded,
		SettledAt:      bun.NullTime{Time: time.Now()},
	}

	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(reversal).Exec(ctx); err != nil {
			return err
		}
		original.Status = common.PaymentStatusRefunded
		if _, err := tx.NewUpdate().Model(&original).WherePK().Exec(ctx); err != nil {
			return err
		}
		return svc.applyPaymentsToInvoice(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return reversal, nil
}

func (svc *BillingService) PaymentsFor(ctx context.Context, orgId, invoiceId int64) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := svc.DB.NewSelect().
		Model(&payments).
		Where("org_id = ? AND invoice_id = ?", orgId, invoiceId).
		OrderExpr("id ASC").
		Scan(ctx)
	return payments, err
}

func paymentStatusFromEvent(status string) string {
	switch status {
	case "succeeded", "paid", "settled":
		return common.PaymentStatusSucceeded
	case "failed", "canceled":
		return common.PaymentStatusFailed
	case "refunded":
		return common.PaymentStatusRefunded
	default:
		return common.PaymentStatusPending
	}
}

func intentStatusFromEvent(status string) string {
	switch status {
	case "succeeded", "paid", "settled":
		return common.IntentStatusSucceeded
	case "failed", "canceled":
		return common.IntentStatusCanceled
	default:
		return common.IntentStatusProcessing
	}
}

func methodFromDetail(detail provider.EventDetail) string {
	switch detail.Kind {
	case "card":
		return common.PaymentMethodCard
	case "ach":
		return common.PaymentMethodACH
	default:
		return ""
	}
}
