package payments

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

type stubMilestoneService struct {
	requests []RequestMilestoneInput
	intent   *MilestoneIntent
	err      error
}

func (s *stubMilestoneService) RequestMilestone(ctx context.Context, input RequestMilestoneInput) (*MilestoneIntent, error) {
	s.requests = append(s.requests, input)
	if s.err != nil {
		return nil, s.err
	}
	if s.intent != nil {
		return s.intent, nil
	}
	return &MilestoneIntent{
		MilestoneID:   uuid.New(),
		OrderID:       input.OrderID,
		MilestoneType: input.MilestoneType,
		Status:        enums.MilestoneStatusPending,
	}, nil
}

func (s *stubMilestoneService) Reconcile(ctx context.Context, event ProviderEvent) error {
	return nil
}

func consumerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
}

func milestoneDueEnvelope(t *testing.T, actor *outbox.ActorRef, payload payloads.MilestoneDueEvent) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Data:       data,
	}
}

func TestRequestMilestoneFromConfirmedTransition(t *testing.T) {
	orderID := uuid.New()
	actor := uuid.New()
	svc := &stubMilestoneService{}
	consumer := &Consumer{service: svc, logg: consumerLogger()}

	envelope := milestoneDueEnvelope(t, &outbox.ActorRef{UserID: actor, Role: "buyer"}, payloads.MilestoneDueEvent{
		OrderID:       orderID,
		MilestoneType: enums.MilestoneTypeUpfront,
		AmountCents:   30000,
		Currency:      enums.CurrencyUSD,
	})
	if err := consumer.requestMilestone(context.Background(), envelope); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(svc.requests) != 1 {
		t.Fatalf("expected 1 request got %d", len(svc.requests))
	}
	input := svc.requests[0]
	if input.OrderID != orderID || input.MilestoneType != enums.MilestoneTypeUpfront {
		t.Fatalf("unexpected request %+v", input)
	}
	if input.ActorUserID != actor || input.ActorRole != "buyer" {
		t.Fatalf("transition actor not forwarded: %+v", input)
	}
}

func TestRequestMilestoneReplayReturnsStoredIntent(t *testing.T) {
	orderID := uuid.New()
	svc := &stubMilestoneService{
		intent: &MilestoneIntent{
			MilestoneID:   uuid.New(),
			OrderID:       orderID,
			MilestoneType: enums.MilestoneTypeUpfront,
			Status:        enums.MilestoneStatusPending,
		},
	}
	consumer := &Consumer{service: svc, logg: consumerLogger()}

	envelope := milestoneDueEnvelope(t, &outbox.ActorRef{UserID: uuid.New()}, payloads.MilestoneDueEvent{
		OrderID:       orderID,
		MilestoneType: enums.MilestoneTypeUpfront,
	})
	if err := consumer.requestMilestone(context.Background(), envelope); err != nil {
		t.Fatalf("redelivery must reuse the active intent, got %v", err)
	}
	if err := consumer.requestMilestone(context.Background(), envelope); err != nil {
		t.Fatalf("second delivery must also succeed, got %v", err)
	}
	if len(svc.requests) != 2 {
		t.Fatalf("expected passthrough on both deliveries got %d", len(svc.requests))
	}
}

func TestRequestMilestoneRejectsMissingActor(t *testing.T) {
	svc := &stubMilestoneService{}
	consumer := &Consumer{service: svc, logg: consumerLogger()}

	envelope := milestoneDueEnvelope(t, nil, payloads.MilestoneDueEvent{
		OrderID:       uuid.New(),
		MilestoneType: enums.MilestoneTypeUpfront,
	})
	if err := consumer.requestMilestone(context.Background(), envelope); err == nil {
		t.Fatal("missing actor must fail")
	}
	if len(svc.requests) != 0 {
		t.Fatal("service must not be called without an actor")
	}
}

func TestRequestMilestoneRejectsMalformedPayload(t *testing.T) {
	svc := &stubMilestoneService{}
	consumer := &Consumer{service: svc, logg: consumerLogger()}

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      &outbox.ActorRef{UserID: uuid.New()},
		Data:       json.RawMessage(`{"order_id":"not-a-uuid"}`),
	}
	if err := consumer.requestMilestone(context.Background(), envelope); err == nil {
		t.Fatal("malformed payload must fail")
	}
	if len(svc.requests) != 0 {
		t.Fatal("service must not be called for malformed payloads")
	}
}
