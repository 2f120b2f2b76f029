package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ziflex/lecho/v3"
)

// RESTClient talks to the payment processor's HTTP API. A non-2xx response
// or a transport error is returned as *Error so callers can distinguish
// transient failures from permanent ones.
type RESTClient struct {
	name       string
	baseUrl    string
	apiKey     string
	httpClient *http.Client
	logger     *lecho.Logger
}

func NewRESTClient(cfg *Config, logger *lecho.Logger) *RESTClient {
	return &RESTClient{
		name:    cfg.Name,
		baseUrl: cfg.BaseUrl,
		apiKey:  cfg.ApiKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

func (c *RESTClient) Name() string {
	return c.name
}

// Error : failure response from the provider. The body is preserved
// verbatim for diagnosis.
type Error struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider request failed: %v", e.Err)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying.
func (e *Error) Transient() bool {
	if e.Err != nil {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type intentPayload struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (c *RESTClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	body := map[string]interface{}{
		"amount":      req.AmountCents,
		"currency":    req.Currency,
		"description": req.Description,
	}
	return c.doIntentRequest(ctx, http.MethodPost, "/v1/payment_intents", body, req.IdempotencyKey)
}

func (c *RESTClient) UpdateIntent(ctx context.Context, providerIntentID string, amountCents int64) (*Intent, error) {
	body := map[string]interface{}{
		"amount": amountCents,
	}
	return c.doIntentRequest(ctx, http.MethodPost, "/v1/payment_intents/"+providerIntentID, body, "")
}

func (c *RESTClient) CancelIntent(ctx context.Context, providerIntentID string) error {
	_, err := c.doIntentRequest(ctx, http.MethodPost, "/v1/payment_intents/"+providerIntentID+"/cancel", nil, "")
	return err
}

func (c *RESTClient) doIntentRequest(ctx context.Context, method, path string, body interface{}, idempotencyKey string) (*Intent, error) {
	payload := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(payload).Encode(body); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed intentPayload
	if err = json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(respBody), Err: err}
	}

	intent := &Intent{
		ID:           parsed.ID,
		ClientSecret: parsed.ClientSecret,
		Status:       parsed.Status,
		AmountCents:  parsed.Amount,
	}
	if parsed.ExpiresAt != 0 {
		intent.ExpiresAt = time.Unix(parsed.ExpiresAt, 0)
	}
	return intent, nil
}
