package messenger

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

const (
	// ProviderName tags external contacts and mirrored messages.
	ProviderName = "messenger"

	responseBodyReadLimit int64 = 64 * 1024

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 5
	initialBackoff    = 250 * time.Millisecond
)

var (
	errBaseURLRequired  = errors.New("messenger base url is required")
	errAPITokenRequired = errors.New("messenger api token is required")
)

// Client wraps the group messaging provider used for order chats.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	maxRetries uint64
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

// NewClient builds the messenger client from configuration.
func NewClient(cfg config.MessengerConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiToken == "" {
		return nil, errAPITokenRequired
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
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		maxRetries: uint64(maxRetries),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

type createThreadRequest struct {
	Subject string `json:"subject"`
}

type createThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

// CreateThread creates an external group thread and returns its identifier.
func (c *Client) CreateThread(ctx context.Context, subject string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "messenger client not configured")
	}
	if strings.TrimSpace(subject) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "thread subject is required")
	}

	var threadID string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var decoded createThreadResponse
		if err := c.post(ctx, "/v1/threads", createThreadRequest{Subject: subject}, &decoded); err != nil {
			return err
		}
		if decoded.ThreadID == "" {
			return pkgerrors.New(pkgerrors.CodeDependency, "thread response missing thread id")
		}
		threadID = decoded.ThreadID
		return nil
	})
	if err != nil {
		return "", err
	}
	return threadID, nil
}

type addParticipantRequest struct {
	Handle string `json:"handle"`
	Role   string `json:"role,omitempty"`
}

// AddParticipant adds a provider handle to the thread. Adding a handle that is
// already a member succeeds.
func (c *Client) AddParticipant(ctx context.Context, threadID, handle, role string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "messenger client not configured")
	}
	if strings.TrimSpace(threadID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "thread id is required")
	}
	if strings.TrimSpace(handle) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "participant handle is required")
	}

	path := fmt.Sprintf("/v1/threads/%s/participants", threadID)
	return c.withRetry(ctx, func(ctx context.Context) error {
		return c.post(ctx, path, addParticipantRequest{Handle: handle, Role: role}, nil)
	})
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type sendMessageResponse struct {
	MessageID string `json:"message_id"`
}

// SendMessage mirrors an internal message into the external thread and returns
// the provider-side message identifier.
func (c *Client) SendMessage(ctx context.Context, threadID, body string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "messenger client not configured")
	}
	if strings.TrimSpace(threadID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "thread id is required")
	}
	if body == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	var messageID string
	path := fmt.Sprintf("/v1/threads/%s/messages", threadID)
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var decoded sendMessageResponse
		if err := c.post(ctx, path, sendMessageRequest{Body: body}, &decoded); err != nil {
			return err
		}
		messageID = decoded.MessageID
		return nil
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(initialBackoff))
	return retry.Do(ctx, backoff, fn)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal messenger request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build messenger request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute messenger request"))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read messenger response"))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("messenger request failed with status %d", resp.StatusCode)))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("messenger request rejected with status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode messenger response")
	}
	return nil
}
