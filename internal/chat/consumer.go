package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/messenger"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/idempotency"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

const deliveryConsumer = "chat-delivery"

type deadLetterSink interface {
	Insert(ctx context.Context, entry models.OutboxDLQ) error
}

// Consumer relays recorded internal messages to the external provider thread.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	messenger    Messenger
	dlq          deadLetterSink
	logg         *logger.Logger
}

// NewConsumer builds the outbound chat delivery consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, sender Messenger, dlq deadLetterSink, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("chat subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if sender == nil {
		return nil, fmt.Errorf("messenger client required")
	}
	if dlq == nil {
		return nil, fmt.Errorf("dead letter sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		messenger:    sender,
		dlq:          dlq,
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
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventMessageRecorded) {
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, deliveryConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.MessageRecordedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, deliveryConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithChatID(logCtx, payload.ChatID.String())
	if err := c.deliver(logCtx, payload); err != nil {
		var permanent *deliveryError
		if errors.As(err, &permanent) {
			c.logg.Error(logCtx, "message delivery dead-lettered", err)
			c.deadLetter(logCtx, eventID, envelope, payload, permanent)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "message delivery failed", err)
		_ = c.idempotency.Delete(ctx, deliveryConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

// deliveryError marks a failure that retrying will not fix.
type deliveryError struct {
	cause error
}

func (e *deliveryError) Error() string { return e.cause.Error() }
func (e *deliveryError) Unwrap() error { return e.cause }

func (c *Consumer) deliver(ctx context.Context, payload payloads.MessageRecordedEvent) error {
	message, err := c.repo.FindMessage(ctx, payload.MessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &deliveryError{cause: fmt.Errorf("message %s not found", payload.MessageID)}
		}
		return fmt.Errorf("load message: %w", err)
	}
	if message.Source != enums.MessageSourceInternal {
		return nil
	}

	chat, err := c.repo.FindChat(ctx, payload.ChatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &deliveryError{cause: fmt.Errorf("chat %s not found", payload.ChatID)}
		}
		return fmt.Errorf("load chat: %w", err)
	}
	if chat.ExternalThreadID == nil || *chat.ExternalThreadID == "" {
		// Thread not provisioned yet; the event will be redelivered.
		return fmt.Errorf("chat %s has no external thread", chat.ID)
	}

	body := message.Body
	if message.SenderUserID != nil {
		contact, err := c.repo.FindExternalContact(ctx, *message.SenderUserID, messenger.ProviderName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// No provider handle for the sender; message stays internal.
				c.logg.Warn(ctx, "sender has no external contact, skipping relay")
				return nil
			}
			return fmt.Errorf("load external contact: %w", err)
		}
		body = fmt.Sprintf("%s: %s", contact.Handle, message.Body)
	}

	externalID, err := c.messenger.SendMessage(ctx, *chat.ExternalThreadID, body)
	if err != nil {
		return &deliveryError{cause: fmt.Errorf("send message: %w", err)}
	}

	c.logg.Info(c.logg.WithField(ctx, "external_message_id", externalID), "message relayed")
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, eventID uuid.UUID, envelope outbox.PayloadEnvelope, payload payloads.MessageRecordedEvent, cause *deliveryError) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		raw = envelope.Data
	}
	msg := cause.Error()
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       eventID,
		EventType:     enums.EventMessageRecorded,
		AggregateType: enums.AggregateChat,
		AggregateID:   payload.ChatID,
		Payload:       raw,
		ErrorReason:   enums.OutboxDLQReasonConsumer,
		ErrorMessage:  &msg,
		AttemptCount:  1,
	}
	if err := c.dlq.Insert(ctx, entry); err != nil {
		c.logg.Error(ctx, "dead letter insert failed", err)
	}
}
