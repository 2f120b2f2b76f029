package provider

import (
	"context"
	"time"
)

// PaymentProviderWrapper is the boundary to the external payment
// processor. Monetary truth is never derived from provider responses once
// a payment row exists in our ledger; the wrapper only moves intents.
type PaymentProviderWrapper interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	UpdateIntent(ctx context.Context, providerIntentID string, amountCents int64) (*Intent, error)
	CancelIntent(ctx context.Context, providerIntentID string) error
	Name() string
}

type CreateIntentRequest struct {
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	Description    string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	ExpiresAt    time.Time
}
