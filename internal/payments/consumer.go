package payments

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/idempotency"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

const milestoneConsumer = "milestone-request"

// Consumer turns MilestoneDue coordination events into provider intents. The
// confirmed transition emits the upfront milestone this way, so a payable
// intent exists without any client calling the payment endpoint.
type Consumer struct {
	service      Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the milestone coordination consumer.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("payment subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		service:      svc,
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

	if eventType != enums.EventMilestoneDue {
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, milestoneConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.requestMilestone(logCtx, envelope); err != nil {
		c.logg.Error(logCtx, "milestone request failed", err)
		_ = c.idempotency.Delete(ctx, milestoneConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) requestMilestone(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.MilestoneDueEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("parse milestone payload: %w", err)
	}
	if payload.OrderID == uuid.Nil {
		return fmt.Errorf("milestone payload missing order id")
	}
	if envelope.Actor == nil || envelope.Actor.UserID == uuid.Nil {
		return fmt.Errorf("milestone event missing actor")
	}

	// RequestMilestone returns the stored intent when one is already active,
	// so redeliveries and a racing endpoint call both collapse to one row.
	intent, err := c.service.RequestMilestone(ctx, RequestMilestoneInput{
		OrderID:       payload.OrderID,
		MilestoneType: payload.MilestoneType,
		ActorUserID:   envelope.Actor.UserID,
		ActorRole:     envelope.Actor.Role,
	})
	if err != nil {
		return err
	}

	logCtx := c.logg.WithFields(c.logg.WithOrderID(ctx, payload.OrderID.String()), map[string]any{
		"milestone_id":   intent.MilestoneID.String(),
		"milestone_type": intent.MilestoneType,
	})
	c.logg.Info(logCtx, "milestone intent ready")
	return nil
}
