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

// CreatePaymentIntent returns the intent a payer should complete for the
// invoice's current balance. At most one live intent exists per invoice:
// an existing live intent for the right amount is reused, one for a stale
// amount is updated at the provider, and an expired one is finalized
// before a replacement is created.
func (svc *BillingService) CreatePaymentIntent(ctx context.Context, orgId, invoiceId int64) (*models.PaymentIntent, error) {
	invoice, err := svc.FindInvoice(ctx, orgId, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status != common.InvoiceStatusSent && invoice.Status != common.InvoiceStatusPartial {
		return nil, NewValidationError("invoice %d is %s and not collectible", invoiceId, invoice.Status)
	}
	if invoice.BalanceDueCents <= 0 {
		return nil, NewValidationError("invoice %d has no balance due", invoiceId)
	}

	now := time.Now()
	var current models.PaymentIntent
	err = svc.DB.NewSelect().
		Model(&current).
		Where("invoice_id = ? AND status NOT IN (?)", invoiceId,
			bun.In([]string{common.IntentStatusSucceeded, common.IntentStatusCanceled, common.IntentStatusExpired})).
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		if !current.Live(now) {
			current.Status = common.IntentStatusExpired
			if _, err = svc.DB.NewUpdate().Model(&current).WherePK().Exec(ctx); err != nil {
				return nil, err
			}
		} else if current.AmountCents == invoice.BalanceDueCents {
			return &current, nil
		} else {
			updated, err := svc.PaymentProvider.UpdateIntent(ctx, current.ProviderIntentID, invoice.BalanceDueCents)
			if err != nil {
				return nil, &ProviderError{Op: "update intent", Transient: isProviderTransient(err), Err: err}
			}
			current.AmountCents = updated.AmountCents
			current.ClientSecret = updated.ClientSecret
			if _, err = svc.DB.NewUpdate().Model(&current).WherePK().Exec(ctx); err != nil {
				return nil, err
			}
			return &current, nil
		}
	}

	intent := &models.PaymentIntent{
		OrgID:          orgId,
		InvoiceID:      invoiceId,
		AmountCents:    invoice.BalanceDueCents,
		Currency:       invoice.Currency,
		Status:         common.IntentStatusRequiresPayment,
		Provider:       svc.PaymentProvider.Name(),
		IdempotencyKey: uuid.NewString(),
		ExpiresAt:      bun.NullTime{Time: now.Add(time.Duration(svc.Config.IntentExpirySeconds) * time.Second)},
	}

	// Insert first, then attach the provider side. If the provider call
	// fails the row stays without a provider id and the next attempt
	// replaces it; we never lose track of an intent the provider knows
	// about. The partial unique index on live intents makes the insert
	// the arbiter under concurrency: whichever request lands first owns
	// the live slot, the loser adopts the winner's row.
	res, err := svc.DB.NewInsert().
		Model(intent).
		On("CONFLICT (invoice_id) WHERE status IN ('requires_payment', 'processing') DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var winner models.PaymentIntent
		err = svc.DB.NewSelect().
			Model(&winner).
			Where("invoice_id = ? AND status IN (?)", invoiceId,
				bun.In([]string{common.IntentStatusRequiresPayment, common.IntentStatusProcessing})).
			OrderExpr("id DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			return nil, err
		}
		return &winner, nil
	}

	created, err := svc.PaymentProvider.CreateIntent(ctx, provider.CreateIntentRequest{
		AmountCents:    intent.AmountCents,
		Currency:       intent.Currency,
		IdempotencyKey: intent.IdempotencyKey,
		Description:    fmt.Sprintf("Invoice %s", invoice.Number),
	})
	if err != nil {
		intent.Status = common.IntentStatusCanceled
		if _, dbErr := svc.DB.NewUpdate().Model(intent).WherePK().Exec(ctx); dbErr != nil {
			svc.Logger.Errorf("Failed to cancel intent after provider error intent_id:%d %v", intent.ID, dbErr)
		}
		return nil, &ProviderError{Op: "create intent", Transient: isProviderTransient(err), Err: err}
	}

	intent.ProviderIntentID = created.ID
	intent.ClientSecret = created.ClientSecret
	if _, err = svc.DB.NewUpdate().Model(intent).WherePK().Exec(ctx); err != nil {
		return nil, err
	}
	return intent, nil
}

// CancelPaymentIntent cancels a live intent locally and at the provider.
func (svc *BillingService) CancelPaymentIntent(ctx context.Context, orgId, intentId int64) error {
	var intent models.PaymentIntent
	err := svc.DB.NewSelect().
		Model(&intent).
		Where("org_id = ? AND id = ?", orgId, intentId).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return err
	}
	if !intent.Live(time.Now()) {
		return NewValidationError("intent %d is no longer live", intentId)
	}
	if intent.ProviderIntentID != "" {
		if err = svc.PaymentProvider.CancelIntent(ctx, intent.ProviderIntentID); err != nil {
			return &ProviderError{Op: "cancel intent", Transient: isProviderTransient(err), Err: err}
		}
	}
	intent.Status = common.IntentStatusCanceled
	_, err = svc.DB.NewUpdate().Model(&intent).WherePK().Exec(ctx)
	return err
}

func isProviderTransient(err error) bool {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	return true
}
