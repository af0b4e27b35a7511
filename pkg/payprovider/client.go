package payprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/craftlinehq/craftline-backend/pkg/config"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
)

// ProviderName identifies this processor in processed-event bookkeeping.
const ProviderName = "payprovider"

const (
	responseBodyReadLimit int64 = 64 * 1024

	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	initialBackoff    = 200 * time.Millisecond
)

var (
	errBaseURLRequired = errors.New("payment provider base url is required")
	errAPIKeyRequired  = errors.New("payment provider api key is required")
)

// Client wraps the payment provider's charge API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
	maxRetries    uint64
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the payment provider client from configuration.
func NewClient(cfg config.PaymentsConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		maxRetries:    uint64(maxRetries),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// WebhookSecret exposes the shared secret used to verify webhook signatures.
func (c *Client) WebhookSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// IntentRequest describes a payment intent creation call.
type IntentRequest struct {
	OrderID        string `json:"order_id"`
	MilestoneType  string `json:"milestone_type"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"-"`
}

// Intent is the provider's view of a created payment intent.
type Intent struct {
	IntentID     string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type intentResponse struct {
	Intent Intent `json:"intent"`
	Error  string `json:"error,omitempty"`
}

// CreateIntent creates a payment intent with the provider. The idempotency key
// makes replays safe; transient failures are retried with exponential backoff.
func (c *Client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider client not configured")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent amount must be positive")
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal intent request")
	}

	var intent *Intent
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(initialBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, attemptErr := c.doCreateIntent(ctx, payload, req.IdempotencyKey)
		if attemptErr != nil {
			return attemptErr
		}
		intent = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (c *Client) doCreateIntent(ctx context.Context, payload []byte, idempotencyKey string) (*Intent, error) {
	url := c.baseURL + "/v1/intents"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build intent request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute intent request"))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read intent response"))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("intent request failed with status %d", resp.StatusCode)))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("intent request rejected with status %d", resp.StatusCode))
	}

	var decoded intentResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode intent response")
	}
	if decoded.Intent.IntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "intent response missing provider reference")
	}
	return &decoded.Intent, nil
}
