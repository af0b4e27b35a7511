package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})
}

func fanoutFixture() (*stubNotificationsRepo, *models.Order) {
	factory := uuid.New()
	rep := uuid.New()
	order := &models.Order{
		ID:        uuid.New(),
		BuyerID:   uuid.New(),
		FactoryID: &factory,
		RepID:     &rep,
	}
	return &stubNotificationsRepo{order: order}, order
}

func envelopeFor(t *testing.T, payload any) outbox.PayloadEnvelope {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func recipientSet(repo *stubNotificationsRepo) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(repo.created))
	for _, row := range repo.created {
		set[row.RecipientUserID] = true
	}
	return set
}

func TestFanOutStatusChangedReachesBuyerAndRep(t *testing.T) {
	repo, order := fanoutFixture()
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.StatusChangedEvent{
		OrderID:    order.ID,
		FromStatus: enums.OrderStatusConfirmed,
		ToStatus:   enums.OrderStatusInProduction,
	})
	err := consumer.fanOut(context.Background(), enums.EventStatusChanged, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 notifications got %d", len(repo.created))
	}
	set := recipientSet(repo)
	if !set[order.BuyerID] || !set[*order.RepID] {
		t.Fatal("expected buyer and rep recipients")
	}
	if set[*order.FactoryID] {
		t.Fatal("factory must not be notified on status change")
	}
}

func TestFanOutStatusChangedUnassignedOrderNotifiesBuyerOnly(t *testing.T) {
	repo, order := fanoutFixture()
	order.RepID = nil
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.StatusChangedEvent{OrderID: order.ID})
	err := consumer.fanOut(context.Background(), enums.EventStatusChanged, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].RecipientUserID != order.BuyerID {
		t.Fatalf("expected buyer-only fanout got %d rows", len(repo.created))
	}
}

func TestFanOutPaymentRequestedNotifiesBuyer(t *testing.T) {
	repo, order := fanoutFixture()
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.PaymentRequestedEvent{
		OrderID:       order.ID,
		MilestoneType: enums.MilestoneTypeUpfront,
		AmountCents:   12345,
		Currency:      enums.CurrencyUSD,
	})
	err := consumer.fanOut(context.Background(), enums.EventPaymentRequested, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification got %d", len(repo.created))
	}
	row := repo.created[0]
	if row.RecipientUserID != order.BuyerID {
		t.Fatal("payment request must target the buyer")
	}
	if row.Message != "The upfront milestone of 123.45 USD is ready to pay." {
		t.Fatalf("unexpected message %q", row.Message)
	}
}

func TestFanOutPaymentReceivedNotifiesBuyerAndFactory(t *testing.T) {
	repo, order := fanoutFixture()
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.PaymentReceivedEvent{
		OrderID:       order.ID,
		MilestoneType: enums.MilestoneTypeDeposit,
	})
	err := consumer.fanOut(context.Background(), enums.EventPaymentReceived, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	set := recipientSet(repo)
	if len(set) != 2 || !set[order.BuyerID] || !set[*order.FactoryID] {
		t.Fatal("expected buyer and factory recipients")
	}
}

func TestFanOutFollowupDueNotifiesRep(t *testing.T) {
	repo, order := fanoutFixture()
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.FollowupDueEvent{
		OrderID:    order.ID,
		FollowupID: uuid.New(),
		DueAt:      time.Now().UTC(),
	})
	err := consumer.fanOut(context.Background(), enums.EventFollowupDue, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].RecipientUserID != *order.RepID {
		t.Fatal("followup must target the rep")
	}
}

func TestFanOutAssignmentCreatedUsesPayloadRep(t *testing.T) {
	repo := &stubNotificationsRepo{}
	consumer := &Consumer{repo: repo, logg: testLogger()}

	rep := uuid.New()
	envelope := envelopeFor(t, payloads.AssignmentCreatedEvent{
		OrderID:      uuid.New(),
		AssignmentID: uuid.New(),
		RepID:        rep,
	})
	err := consumer.fanOut(context.Background(), enums.EventAssignmentCreated, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].RecipientUserID != rep {
		t.Fatal("assignment must target the payload rep without an order lookup")
	}
}

func TestFanOutOrderArchivedNotifiesAllParties(t *testing.T) {
	repo, order := fanoutFixture()
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.OrderArchivedEvent{
		OrderID:    order.ID,
		ArchivedAt: time.Now().UTC(),
	})
	err := consumer.fanOut(context.Background(), enums.EventOrderArchived, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	set := recipientSet(repo)
	if len(set) != 3 || !set[order.BuyerID] || !set[*order.FactoryID] || !set[*order.RepID] {
		t.Fatal("expected buyer, factory and rep recipients")
	}
}

func TestFanOutAbsorbsDuplicateRecipientRows(t *testing.T) {
	repo, order := fanoutFixture()
	repo.createErrs = []error{fmt.Errorf("UNIQUE constraint failed: idx_notifications_event_recipient")}
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.StatusChangedEvent{OrderID: order.ID})
	err := consumer.fanOut(context.Background(), enums.EventStatusChanged, uuid.New(), envelope)
	if err != nil {
		t.Fatalf("duplicate insert must be absorbed, got %v", err)
	}
	// First insert was a duplicate, the second recipient still lands.
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 stored row got %d", len(repo.created))
	}
}

func TestFanOutPropagatesStorageErrors(t *testing.T) {
	repo, order := fanoutFixture()
	repo.createErrs = []error{fmt.Errorf("connection reset")}
	consumer := &Consumer{repo: repo, logg: testLogger()}

	envelope := envelopeFor(t, payloads.StatusChangedEvent{OrderID: order.ID})
	err := consumer.fanOut(context.Background(), enums.EventStatusChanged, uuid.New(), envelope)
	if err == nil {
		t.Fatal("storage errors must surface for redelivery")
	}
}

func TestFanOutHandlesSkipsUnrelatedEvents(t *testing.T) {
	if fanoutHandles(enums.EventMilestoneDue) {
		t.Fatal("milestone due is an internal coordination event")
	}
	if fanoutHandles(enums.EventMessageRecorded) {
		t.Fatal("chat traffic must not fan out")
	}
	if !fanoutHandles(enums.EventStatusChanged) {
		t.Fatal("status changes must fan out")
	}
}

func TestFanOutStampsEventAndOrder(t *testing.T) {
	repo, order := fanoutFixture()
	consumer := &Consumer{repo: repo, logg: testLogger()}

	eventID := uuid.New()
	envelope := envelopeFor(t, payloads.StatusChangedEvent{OrderID: order.ID})
	err := consumer.fanOut(context.Background(), enums.EventStatusChanged, eventID, envelope)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	row := repo.created[0]
	if row.EventID != eventID {
		t.Fatal("notification must carry the source event id")
	}
	if row.OrderID == nil || *row.OrderID != order.ID {
		t.Fatal("notification must reference the order")
	}
	if row.Type != enums.NotificationTypeStatusChanged {
		t.Fatalf("unexpected type %s", row.Type)
	}
}
