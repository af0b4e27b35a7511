package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/config"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "cl-domain-events"})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	return reg
}

func envelopeRow(t *testing.T, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, data interface{}) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestResolveStatusChanged(t *testing.T) {
	reg := testRegistry(t)
	row := envelopeRow(t, enums.EventStatusChanged, enums.AggregateOrder, payloads.StatusChangedEvent{
		OrderID:    uuid.New(),
		Kind:       enums.OrderKindOrder,
		FromStatus: enums.OrderStatusRequested,
		ToStatus:   enums.OrderStatusConfirmed,
		Version:    2,
	})

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "cl-domain-events" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.StatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.ToStatus != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected to_status %q", payload.ToStatus)
	}
}

// TestResolveProducerRows feeds Resolve one row per event type, each with the
// aggregate its producing service actually stamps, so a descriptor drifting
// from an emit site fails here instead of dead-lettering in production.
func TestResolveProducerRows(t *testing.T) {
	reg := testRegistry(t)
	orderID := uuid.New()

	rows := []models.OutboxEvent{
		envelopeRow(t, enums.EventStatusChanged, enums.AggregateOrder, payloads.StatusChangedEvent{OrderID: orderID}),
		envelopeRow(t, enums.EventMilestoneDue, enums.AggregateOrder, payloads.MilestoneDueEvent{
			OrderID:       orderID,
			MilestoneType: enums.MilestoneTypeUpfront,
			AmountCents:   30000,
			Currency:      enums.CurrencyUSD,
		}),
		envelopeRow(t, enums.EventPaymentRequested, enums.AggregateMilestone, payloads.PaymentRequestedEvent{OrderID: orderID}),
		envelopeRow(t, enums.EventPaymentReceived, enums.AggregateMilestone, payloads.PaymentReceivedEvent{OrderID: orderID}),
		// The deposit webhook emits provisioning keyed by the order, not an
		// assignment; samples reach the same event through Assign.
		envelopeRow(t, enums.EventChatProvisioningDue, enums.AggregateOrder, payloads.ChatProvisioningDueEvent{OrderID: orderID}),
		envelopeRow(t, enums.EventMessageRecorded, enums.AggregateChat, payloads.MessageRecordedEvent{OrderID: orderID}),
		envelopeRow(t, enums.EventAssignmentCreated, enums.AggregateAssignment, payloads.AssignmentCreatedEvent{OrderID: orderID}),
		envelopeRow(t, enums.EventFollowupDue, enums.AggregateFollowup, payloads.FollowupDueEvent{OrderID: orderID}),
		envelopeRow(t, enums.EventOrderArchived, enums.AggregateOrder, payloads.OrderArchivedEvent{OrderID: orderID}),
	}
	if len(rows) != len(reg.entries) {
		t.Fatalf("expected one row per registered event type, got %d of %d", len(rows), len(reg.entries))
	}

	for _, row := range rows {
		row := row
		t.Run(string(row.EventType), func(t *testing.T) {
			resolved, err := reg.Resolve(row)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if resolved.Descriptor.Topic != "cl-domain-events" {
				t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
			}
		})
	}
}

func TestResolveUnsupportedEventType(t *testing.T) {
	reg := testRegistry(t)
	row := envelopeRow(t, enums.OutboxEventType("order.unknown"), enums.AggregateOrder, map[string]string{})

	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveAggregateMismatch(t *testing.T) {
	reg := testRegistry(t)
	row := envelopeRow(t, enums.EventStatusChanged, enums.AggregateChat, payloads.StatusChangedEvent{})

	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveEmptyPayload(t *testing.T) {
	reg := testRegistry(t)
	row := envelopeRow(t, enums.EventFollowupDue, enums.AggregateFollowup, nil)

	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}
