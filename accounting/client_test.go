package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *QboClient {
	return NewQboClient(&Config{
		BaseUrl:     url,
		RealmID:     "realm1",
		AccessToken: "token",
		Timeout:     5,
	}, nil)
}

func TestPushInvoiceCreates(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"Id": "qbo-77"})
	}))
	defer srv.Close()

	invoice := &models.Invoice{
		Number:          "INV-1001",
		TotalCents:      150000,
		BalanceDueCents: 150000,
		Currency:        "USD",
		Lines: []*models.InvoiceLine{
			{Description: "Framing labor", Quantity: 2, UnitPriceCents: 75000},
		},
	}

	id, err := testClient(srv.URL).PushInvoice(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, "qbo-77", id)
	assert.Equal(t, "/v3/company/realm1/invoice", gotPath)
	assert.Equal(t, "INV-1001", gotPayload["DocNumber"])
	assert.Equal(t, 1500.0, gotPayload["TotalAmt"])
}

func TestPushInvoiceUpdatesExisting(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]string{"Id": "qbo-77"})
	}))
	defer srv.Close()

	invoice := &models.Invoice{QboID: "qbo-77", Number: "INV-1001", Currency: "USD"}
	_, err := testClient(srv.URL).PushInvoice(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, "operation=update", gotQuery)
}

func TestPushPaymentLinksInvoice(t *testing.T) {
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(map[string]string{"Id": "qbo-pay-9"})
	}))
	defer srv.Close()

	payment := &models.Payment{AmountCents: 50000, Reference: "check 1042"}
	id, err := testClient(srv.URL).PushPayment(context.Background(), payment, "qbo-77")
	require.NoError(t, err)
	assert.Equal(t, "qbo-pay-9", id)
	assert.Equal(t, "qbo-77", gotPayload["LinkedTxnId"])
	assert.Equal(t, 500.0, gotPayload["TotalAmt"])
}

func TestPushInvoiceAmountsSerializeExactly(t *testing.T) {
	// 9007199254740993 cents is above 2^53 and has no exact float64
	// representation; the payload must still carry every cent.
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		require.NoError(t, dec.Decode(&gotPayload))
		json.NewEncoder(w).Encode(map[string]string{"Id": "qbo-88"})
	}))
	defer srv.Close()

	invoice := &models.Invoice{
		Number:          "INV-2001",
		TotalCents:      9007199254740993,
		BalanceDueCents: 9007199254740993,
		Currency:        "USD",
		Lines: []*models.InvoiceLine{
			{Description: "Sitework", Quantity: 1, UnitPriceCents: 9007199254740993},
		},
	}

	_, err := testClient(srv.URL).PushInvoice(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, json.Number("90071992547409.93"), gotPayload["TotalAmt"])
	assert.Equal(t, json.Number("90071992547409.93"), gotPayload["Balance"])

	lines, ok := gotPayload["Line"].([]interface{})
	require.True(t, ok)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]interface{})
	assert.Equal(t, json.Number("90071992547409.93"), line["Amount"])
}

func TestPushInvoiceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).PushInvoice(context.Background(), &models.Invoice{Number: "INV-1"})
	require.Error(t, err)

	var qboErr *Error
	require.ErrorAs(t, err, &qboErr)
	assert.Equal(t, http.StatusInternalServerError, qboErr.StatusCode)
	assert.True(t, qboErr.Transient())
}

func TestPushInvoiceBadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "validation fault", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).PushInvoice(context.Background(), &models.Invoice{Number: "INV-1"})
	var qboErr *Error
	require.ErrorAs(t, err, &qboErr)
	assert.False(t, qboErr.Transient())
	assert.Contains(t, qboErr.Body, "validation fault")
}

func TestPushInvoiceRejectsResponseWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).PushInvoice(context.Background(), &models.Invoice{Number: "INV-1"})
	assert.Error(t, err)
}
