package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEventCard(t *testing.T) {
	body := []byte(`{
		"type": "payment.succeeded",
		"data": {
			"id": "py_123",
			"payment_intent": "pi_456",
			"status": "succeeded",
			"amount": 150000,
			"fee": 4500,
			"currency": "USD",
			"created": 1767225600,
			"payment_method_details": {
				"type": "card",
				"card": {"brand": "visa", "last4": "4242"}
			}
		}
	}`)

	event, err := ParseWebhookEvent("stripe", body)
	require.NoError(t, err)

	assert.Equal(t, "stripe", event.Provider)
	assert.Equal(t, "payment.succeeded", event.Type)
	assert.Equal(t, "py_123", event.ProviderPaymentID)
	assert.Equal(t, "pi_456", event.ProviderIntentID)
	assert.Equal(t, "succeeded", event.Status)
	assert.Equal(t, int64(150000), event.AmountCents)
	assert.Equal(t, int64(4500), event.FeeCents)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, time.Unix(1767225600, 0), event.OccurredAt)
	assert.Equal(t, "card", event.Detail.Kind)
	require.NotNil(t, event.Detail.Card)
	assert.Equal(t, "visa", event.Detail.Card.Brand)
	assert.Equal(t, "4242", event.Detail.Card.Last4)
}

func TestParseWebhookEventACH(t *testing.T) {
	body := []byte(`{
		"type": "payment.failed",
		"data": {
			"id": "py_789",
			"status": "failed",
			"amount": 50000,
			"payment_method_details": {
				"type": "ach_debit",
				"ach_debit": {"bank_name": "First National", "last4": "6789", "return_code": "R01"}
			}
		}
	}`)

	event, err := ParseWebhookEvent("stripe", body)
	require.NoError(t, err)

	assert.Equal(t, "ach", event.Detail.Kind)
	require.NotNil(t, event.Detail.ACH)
	assert.Equal(t, "R01", event.Detail.ACH.ReturnCode)
}

func TestParseWebhookEventMinimalPayload(t *testing.T) {
	event, err := ParseWebhookEvent("stripe", []byte(`{"type":"payment.succeeded","data":{"id":"py_1"}}`))
	require.NoError(t, err)

	assert.Equal(t, "py_1", event.ProviderPaymentID)
	assert.Equal(t, int64(0), event.AmountCents)
	assert.True(t, event.OccurredAt.IsZero())
	// unrecognized payment methods fall back to the raw variant
	assert.Equal(t, "unknown", event.Detail.Kind)
	assert.NotEmpty(t, event.Detail.Raw)
}

func TestParseWebhookEventRejectsMissingPaymentID(t *testing.T) {
	_, err := ParseWebhookEvent("stripe", []byte(`{"type":"payment.succeeded","data":{"status":"succeeded"}}`))
	assert.Error(t, err)
}

func TestParseWebhookEventRejectsMalformedJSON(t *testing.T) {
	_, err := ParseWebhookEvent("stripe", []byte(`{"type":`))
	assert.Error(t, err)
}
