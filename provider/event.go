package provider

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the normalized form of a provider webhook payload. Providers
// deliver at least once, so everything keyed off ProviderPaymentID must be
// idempotent downstream.
type Event struct {
	Provider          string      `json:"provider"`
	Type              string      `json:"type"`
	ProviderPaymentID string      `json:"provider_payment_id"`
	ProviderIntentID  string      `json:"provider_intent_id"`
	Status            string      `json:"status"`
	AmountCents       int64       `json:"amount_cents"`
	FeeCents          int64       `json:"fee_cents"`
	Currency          string      `json:"currency"`
	OccurredAt        time.Time   `json:"occurred_at"`
	Detail            EventDetail `json:"detail"`
}

// EventDetail is a tagged variant: handling code can match the known
// shapes exhaustively while Raw keeps the opaque provider payload as an
// escape hatch.
type EventDetail struct {
	Kind string          `json:"kind"`
	Card *CardDetail     `json:"card,omitempty"`
	ACH  *ACHDetail      `json:"ach,omitempty"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

type CardDetail struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	Declined string `json:"declined,omitempty"`
}

type ACHDetail struct {
	BankName   string `json:"bank_name"`
	Last4      string `json:"last4"`
	ReturnCode string `json:"return_code,omitempty"`
}

type rawWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type rawWebhookData struct {
	ID            string          `json:"id"`
	PaymentIntent string          `json:"payment_intent"`
	Status        string          `json:"status"`
	Amount        *int64          `json:"amount"`
	Fee           *int64          `json:"fee"`
	Currency      string          `json:"currency"`
	Created       int64           `json:"created"`
	PaymentMethod json.RawMessage `json:"payment_method_details"`
}

type rawPaymentMethodDetails struct {
	Type string      `json:"type"`
	Card *CardDetail `json:"card"`
	ACH  *ACHDetail  `json:"ach_debit"`
}

// ParseWebhookEvent decodes a provider webhook body. Field absence is
// tolerated everywhere except the payment id itself.
func ParseWebhookEvent(providerName string, body []byte) (*Event, error) {
	var raw rawWebhookEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	var data rawWebhookData
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode webhook data: %w", err)
		}
	}
	if data.ID == "" {
		return nil, fmt.Errorf("webhook payload has no payment id")
	}

	event := &Event{
		Provider:          providerName,
		Type:              raw.Type,
		ProviderPaymentID: data.ID,
		ProviderIntentID:  data.PaymentIntent,
		Status:            data.Status,
		Currency:          data.Currency,
		Detail:            EventDetail{Kind: "unknown", Raw: raw.Data},
	}
	if data.Amount != nil {
		event.AmountCents = *data.Amount
	}
	if data.Fee != nil {
		event.FeeCents = *data.Fee
	}
	if data.Created != 0 {
		event.OccurredAt = time.Unix(data.Created, 0)
	}

	if len(data.PaymentMethod) > 0 {
		var pm rawPaymentMethodDetails
		if err := json.Unmarshal(data.PaymentMethod, &pm); err == nil {
			switch pm.Type {
			case "card":
				event.Detail = EventDetail{Kind: "card", Card: pm.Card, Raw: raw.Data}
			case "ach_debit":
				event.Detail = EventDetail{Kind: "ach", ACH: pm.ACH, Raw: raw.Data}
			}
		}
	}
	return event, nil
}
