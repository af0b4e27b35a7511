package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/idempotency"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

const fanoutConsumer = "notification-fanout"

// recipientUniqueIndex absorbs duplicate fanout under redelivery.
const recipientUniqueIndex = "idx_notifications_event_recipient"

// Consumer turns domain events into per-recipient notification rows.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification fanout consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !fanoutHandles(eventType) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, fanoutConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.fanOut(logCtx, eventType, eventID, envelope); err != nil {
		c.logg.Error(logCtx, "notification fanout failed", err)
		_ = c.idempotency.Delete(ctx, fanoutConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func fanoutHandles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventStatusChanged,
		enums.EventPaymentRequested,
		enums.EventPaymentReceived,
		enums.EventFollowupDue,
		enums.EventAssignmentCreated,
		enums.EventOrderArchived:
		return true
	default:
		return false
	}
}

// draft is one pending notification before recipients are attached.
type draft struct {
	orderID uuid.UUID
	kind    enums.NotificationType
	title   string
	message string
	link    string
}

func (c *Consumer) fanOut(ctx context.Context, eventType enums.OutboxEventType, eventID uuid.UUID, envelope outbox.PayloadEnvelope) error {
	var (
		d          draft
		recipients []uuid.UUID
		err        error
	)

	switch eventType {
	case enums.EventStatusChanged:
		var payload payloads.StatusChangedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse status changed payload: %w", err)
		}
		d = draft{
			orderID: payload.OrderID,
			kind:    enums.NotificationTypeStatusChanged,
			title:   "Order status updated",
			message: fmt.Sprintf("Order moved from %s to %s.", payload.FromStatus, payload.ToStatus),
			link:    orderLink(payload.OrderID),
		}
		recipients, err = c.orderRecipients(ctx, payload.OrderID, true, false, true)

	case enums.EventPaymentRequested:
		var payload payloads.PaymentRequestedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse payment requested payload: %w", err)
		}
		d = draft{
			orderID: payload.OrderID,
			kind:    enums.NotificationTypePaymentRequested,
			title:   "Payment requested",
			message: fmt.Sprintf("The %s milestone of %s is ready to pay.", payload.MilestoneType, formatAmount(payload.AmountCents, payload.Currency)),
			link:    orderLink(payload.OrderID) + "/payments",
		}
		recipients, err = c.orderRecipients(ctx, payload.OrderID, true, false, false)

	case enums.EventPaymentReceived:
		var payload payloads.PaymentReceivedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse payment received payload: %w", err)
		}
		d = draft{
			orderID: payload.OrderID,
			kind:    enums.NotificationTypePaymentReceived,
			title:   "Payment received",
			message: fmt.Sprintf("The %s milestone has been paid.", payload.MilestoneType),
			link:    orderLink(payload.OrderID) + "/payments",
		}
		recipients, err = c.orderRecipients(ctx, payload.OrderID, true, true, false)

	case enums.EventFollowupDue:
		var payload payloads.FollowupDueEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse followup due payload: %w", err)
		}
		d = draft{
			orderID: payload.OrderID,
			kind:    enums.NotificationTypeFollowupDue,
			title:   "Follow-up due",
			message: "An archived order is due for a customer follow-up.",
			link:    orderLink(payload.OrderID),
		}
		recipients, err = c.orderRecipients(ctx, payload.OrderID, false, false, true)

	case enums.EventAssignmentCreated:
		var payload payloads.AssignmentCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse assignment payload: %w", err)
		}
		d = draft{
			orderID: payload.OrderID,
			kind:    enums.NotificationTypeAssignmentCreated,
			title:   "New assignment",
			message: "You have been assigned to a sample request.",
			link:    orderLink(payload.OrderID),
		}
		if payload.RepID != uuid.Nil {
			recipients = []uuid.UUID{payload.RepID}
		}

	case enums.EventOrderArchived:
		var payload payloads.OrderArchivedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse archived payload: %w", err)
		}
		d = draft{
			orderID: payload.OrderID,
			kind:    enums.NotificationTypeOrderArchived,
			title:   "Order archived",
			message: "The order has been completed and archived.",
			link:    orderLink(payload.OrderID),
		}
		recipients, err = c.orderRecipients(ctx, payload.OrderID, true, true, true)
	}
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		c.logg.Warn(ctx, "no recipients resolved for event")
		return nil
	}

	for _, recipient := range recipients {
		orderID := d.orderID
		link := d.link
		row := &models.Notification{
			ID:              uuid.New(),
			EventID:         eventID,
			RecipientUserID: recipient,
			Type:            d.kind,
			Title:           d.title,
			Message:         d.message,
			Link:            &link,
			OrderID:         &orderID,
			Payload:         envelope.Data,
		}
		if err := c.repo.Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, recipientUniqueIndex) {
				continue
			}
			return fmt.Errorf("create notification: %w", err)
		}
	}
	c.logg.Info(c.logg.WithField(ctx, "recipients", len(recipients)), "notifications fanned out")
	return nil
}

// orderRecipients resolves the order parties, deduplicated and skipping unset
// roles.
func (c *Consumer) orderRecipients(ctx context.Context, orderID uuid.UUID, buyer, factory, rep bool) ([]uuid.UUID, error) {
	order, err := c.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	seen := make(map[uuid.UUID]bool)
	var recipients []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil || seen[id] {
			return
		}
		seen[id] = true
		recipients = append(recipients, id)
	}

	if buyer {
		add(order.BuyerID)
	}
	if factory && order.FactoryID != nil {
		add(*order.FactoryID)
	}
	if rep && order.RepID != nil {
		add(*order.RepID)
	}
	return recipients, nil
}

func orderLink(orderID uuid.UUID) string {
	return fmt.Sprintf("/orders/%s", orderID)
}

func formatAmount(cents int64, currency enums.Currency) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
