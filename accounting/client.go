package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/shopspring/decimal"
	"github.com/ziflex/lecho/v3"
)

// QboClient pushes invoices and payments to the accounting system over its
// REST API. Error bodies are kept verbatim so the sync history can store
// them for operator diagnosis.
type QboClient struct {
	baseUrl     string
	realmID     string
	accessToken string
	httpClient  *http.Client
	logger      *lecho.Logger
}

func NewQboClient(cfg *Config, logger *lecho.Logger) *QboClient {
	return &QboClient{
		baseUrl:     cfg.BaseUrl,
		realmID:     cfg.RealmID,
		accessToken: cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

// Error : failure response from the accounting system.
type Error struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("accounting request failed: %v", e.Err)
	}
	return fmt.Sprintf("accounting returned status %d: %s", e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure may resolve on retry.
func (e *Error) Transient() bool {
	if e.Err != nil {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type invoicePayload struct {
	ID          string               `json:"Id,omitempty"`
	DocNumber   string               `json:"DocNumber,omitempty"`
	TotalAmt    json.Number          `json:"TotalAmt"`
	Balance     json.Number          `json:"Balance"`
	CurrencyRef map[string]string    `json:"CurrencyRef"`
	TxnDate     string               `json:"TxnDate,omitempty"`
	DueDate     string               `json:"DueDate,omitempty"`
	Lines       []invoiceLinePayload `json:"Line"`
}

type invoiceLinePayload struct {
	Description string      `json:"Description,omitempty"`
	Amount      json.Number `json:"Amount"`
	Qty         int64       `json:"Qty"`
}

type paymentPayload struct {
	ID          string      `json:"Id,omitempty"`
	TotalAmt    json.Number `json:"TotalAmt"`
	TxnRef      string      `json:"TxnRef,omitempty"`
	LinkedTxnID string      `json:"LinkedTxnId,omitempty"`
}

// dollars renders integer cents as an exact two-decimal JSON number.
// Going through decimal keeps amounts out of float64, which cannot
// represent every cent value above 2^53.
func dollars(cents int64) json.Number {
	return json.Number(decimal.New(cents, -2).String())
}

type entityResponse struct {
	ID string `json:"Id"`
}

// PushInvoice creates or updates the invoice externally. An invoice that
// already carries a qbo_id is updated in place, never duplicated.
func (c *QboClient) PushInvoice(ctx context.Context, invoice *models.Invoice) (string, error) {
	payload := invoicePayload{
		ID:          invoice.QboID,
		DocNumber:   invoice.Number,
		TotalAmt:    dollars(invoice.TotalCents),
		Balance:     dollars(invoice.BalanceDueCents),
		CurrencyRef: map[string]string{"value": invoice.Currency},
	}
	if !invoice.IssueDate.IsZero() {
		payload.TxnDate = invoice.IssueDate.Time.Format("2006-01-02")
	}
	if !invoice.DueDate.IsZero() {
		payload.DueDate = invoice.DueDate.Time.Format("2006-01-02")
	}
	for _, line := range invoice.Lines {
		payload.Lines = append(payload.Lines, invoiceLinePayload{
			Description: line.Description,
			Amount:      dollars(line.AmountCents()),
			Qty:         line.Quantity,
		})
	}

	method := http.MethodPost
	path := fmt.Sprintf("/v3/company/%s/invoice", c.realmID)
	if invoice.QboID != "" {
		// sparse update keyed by the external id
		path = path + "?operation=update"
	}
	return c.pushEntity(ctx, method, path, payload)
}

// PushPayment records the payment against the already-synced invoice.
func (c *QboClient) PushPayment(ctx context.Context, payment *models.Payment, invoiceExternalID string) (string, error) {
	payload := paymentPayload{
		ID:          payment.QboID,
		TotalAmt:    dollars(payment.AmountCents),
		TxnRef:      payment.Reference,
		LinkedTxnID: invoiceExternalID,
	}
	path := fmt.Sprintf("/v3/company/%s/payment", c.realmID)
	if payment.QboID != "" {
		path = path + "?operation=update"
	}
	return c.pushEntity(ctx, http.MethodPost, path, payload)
}

func (c *QboClient) pushEntity(ctx context.Context, method, path string, payload interface{}) (string, error) {
	body := new(bytes.Buffer)
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var entity entityResponse
	if err = json.Unmarshal(respBody, &entity); err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Body: string(respBody), Err: err}
	}
	if entity.ID == "" {
		return "", &Error{StatusCode: resp.StatusCode, Body: string(respBody), Err: fmt.Errorf("response has no entity id")}
	}
	return entity.ID, nil
}
