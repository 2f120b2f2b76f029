package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRESTClient(url string) *RESTClient {
	return NewRESTClient(&Config{
		Name:    "stripe",
		BaseUrl: url,
		ApiKey:  "sk_test",
		Timeout: 5,
	}, nil)
}

func TestCreateIntent(t *testing.T) {
	var gotIdempotencyKey string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "pi_123",
			"client_secret": "pi_123_secret",
			"status":        "requires_payment",
			"amount":        150000,
		})
	}))
	defer srv.Close()

	intent, err := testRESTClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{
		AmountCents:    150000,
		Currency:       "USD",
		IdempotencyKey: "idem-1",
		Description:    "INV-1001",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	assert.Equal(t, int64(150000), intent.AmountCents)
	assert.Equal(t, "idem-1", gotIdempotencyKey)
	assert.Equal(t, 150000.0, gotBody["amount"])
}

func TestCreateIntentProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testRESTClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{AmountCents: 100})
	require.Error(t, err)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
	assert.True(t, provErr.Transient())
}

func TestCreateIntentClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "amount too small", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := testRESTClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{AmountCents: 1})
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.False(t, provErr.Transient())
}

func TestTransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := testRESTClient(srv.URL).CreateIntent(context.Background(), CreateIntentRequest{AmountCents: 100})
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.Transient())
}

func TestCancelIntent(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "pi_123", "status": "canceled"})
	}))
	defer srv.Close()

	err := testRESTClient(srv.URL).CancelIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "/v1/payment_intents/pi_123/cancel", gotPath)
}
