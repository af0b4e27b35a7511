package payprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/craftlinehq/craftline-backend/pkg/config"
)

func testConfig(baseURL string) config.PaymentsConfig {
	return config.PaymentsConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		WebhookSecret:  "test-secret",
		RequestTimeout: 2 * time.Second,
		MaxRetries:     2,
	}
}

func TestCreateIntentSuccess(t *testing.T) {
	var gotIdempotencyKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"intent": map[string]string{"id": "pi_123", "client_secret": "cs_123", "status": "pending"},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	intent, err := client.CreateIntent(context.Background(), IntentRequest{
		OrderID:        "order-1",
		MilestoneType:  "deposit",
		AmountCents:    5000,
		Currency:       "USD",
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.IntentID != "pi_123" {
		t.Fatalf("unexpected intent id %q", intent.IntentID)
	}
	if intent.ClientSecret != "cs_123" {
		t.Fatalf("unexpected client secret %q", intent.ClientSecret)
	}
	if gotIdempotencyKey != "key-1" {
		t.Fatalf("unexpected idempotency key %q", gotIdempotencyKey)
	}
}

func TestCreateIntentRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"intent": map[string]string{"id": "pi_456", "client_secret": "cs_456", "status": "pending"},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	intent, err := client.CreateIntent(context.Background(), IntentRequest{
		AmountCents:    3000,
		Currency:       "USD",
		IdempotencyKey: "key-2",
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.IntentID != "pi_456" {
		t.Fatalf("unexpected intent id %q", intent.IntentID)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestCreateIntentDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.CreateIntent(context.Background(), IntentRequest{
		AmountCents:    3000,
		Currency:       "USD",
		IdempotencyKey: "key-3",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestCreateIntentValidation(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:0"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.CreateIntent(context.Background(), IntentRequest{AmountCents: 0, IdempotencyKey: "k"}); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
	if _, err := client.CreateIntent(context.Background(), IntentRequest{AmountCents: 100}); err == nil {
		t.Fatal("expected error for missing idempotency key")
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(config.PaymentsConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base url")
	}
	if _, err := NewClient(config.PaymentsConfig{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
