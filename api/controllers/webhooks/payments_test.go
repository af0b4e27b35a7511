package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/internal/payments"
)

type fakePaymentWebhookService struct {
	calls  int
	events []payments.ProviderEvent
	err    error
}

func (f *fakePaymentWebhookService) Reconcile(_ context.Context, event payments.ProviderEvent) error {
	f.calls++
	f.events = append(f.events, event)
	return f.err
}

type fakePaymentClient struct {
	secret string
}

func (c *fakePaymentClient) WebhookSecret() string {
	return c.secret
}

func buildPaymentEvent(t *testing.T, eventType string) []byte {
	t.Helper()
	event := paymentWebhookEvent{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
	}
	event.Data.IntentID = "in_" + uuid.NewString()
	event.Data.OccurredAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func signPayment(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentWebhookSuccess(t *testing.T) {
	payload := buildPaymentEvent(t, payments.ProviderEventIntentSucceeded)
	service := &fakePaymentWebhookService{}
	handler := PaymentWebhook(service, &fakePaymentClient{secret: "secret"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(paymentSignatureHeader, signPayment(payload, "secret"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
	event := service.events[0]
	if event.Type != payments.ProviderEventIntentSucceeded {
		t.Fatalf("unexpected event type %s", event.Type)
	}
	if event.IntentID == "" || event.EventID == "" {
		t.Fatalf("event fields not forwarded: %+v", event)
	}
	if !event.OccurredAt.Equal(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurred_at not forwarded: %v", event.OccurredAt)
	}
}

func TestPaymentWebhookInvalidSignature(t *testing.T) {
	payload := buildPaymentEvent(t, payments.ProviderEventIntentFailed)
	service := &fakePaymentWebhookService{}
	handler := PaymentWebhook(service, &fakePaymentClient{secret: "secret"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(paymentSignatureHeader, "invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestPaymentWebhookMalformedBody(t *testing.T) {
	payload := []byte(`{"id": "evt_x", "type":`)
	service := &fakePaymentWebhookService{}
	handler := PaymentWebhook(service, &fakePaymentClient{secret: "secret"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(paymentSignatureHeader, signPayment(payload, "secret"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on malformed body")
	}
}

func TestPaymentWebhookMissingSignature(t *testing.T) {
	payload := buildPaymentEvent(t, payments.ProviderEventIntentSucceeded)
	handler := PaymentWebhook(&fakePaymentWebhookService{}, &fakePaymentClient{secret: "secret"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
}
