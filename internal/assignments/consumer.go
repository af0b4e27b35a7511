package assignments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/messenger"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/idempotency"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

const provisioningConsumer = "chat-provisioning"

// participantUniqueIndex absorbs duplicate membership rows across retries.
const participantUniqueIndex = "idx_chat_participants_chat_user"

// chatUniqueIndex guards the single chat per order.
const chatUniqueIndex = "idx_group_chats_order_id"

// Consumer provisions the per-order group chat: the thread with the external
// provider plus the buyer/factory/rep membership rows. Every step is
// existence-checked so a retry resumes from whatever a previous attempt left
// behind.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	messenger    Messenger
	logg         *logger.Logger
}

// NewConsumer builds the chat provisioning consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, provider Messenger, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("assignment subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if provider == nil {
		return nil, fmt.Errorf("messenger client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		messenger:    provider,
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

	if eventType != enums.EventAssignmentCreated && eventType != enums.EventChatProvisioningDue {
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, provisioningConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	orderID, err := orderIDFromEnvelope(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, provisioningConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, orderID.String())
	if err := c.provision(logCtx, orderID); err != nil {
		c.logg.Error(logCtx, "chat provisioning failed", err)
		_ = c.idempotency.Delete(ctx, provisioningConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func orderIDFromEnvelope(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (uuid.UUID, error) {
	if eventType == enums.EventAssignmentCreated {
		var payload payloads.AssignmentCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return uuid.Nil, fmt.Errorf("parse assignment payload: %w", err)
		}
		return payload.OrderID, nil
	}
	var payload payloads.ChatProvisioningDueEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return uuid.Nil, fmt.Errorf("parse provisioning payload: %w", err)
	}
	return payload.OrderID, nil
}

func (c *Consumer) provision(ctx context.Context, orderID uuid.UUID) error {
	order, err := c.repo.FindOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}

	// Orders reach provisioning through the deposit webhook and may have no
	// assignment row; the step flags are skipped in that case.
	assignment, err := c.repo.FindAssignmentByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load assignment: %w", err)
	}

	chat, err := c.ensureChat(ctx, orderID)
	if err != nil {
		return err
	}

	threadID, err := c.ensureThread(ctx, order, chat, assignment)
	if err != nil {
		return err
	}

	if err := c.ensureParticipants(ctx, order, chat, threadID); err != nil {
		return err
	}
	if assignment != nil && !assignment.ParticipantsAdded {
		if err := c.repo.UpdateAssignmentFlags(ctx, assignment.ID, map[string]any{"participants_added": true}); err != nil {
			return fmt.Errorf("flag participants added: %w", err)
		}
	}

	c.logg.Info(c.logg.WithChatID(ctx, chat.ID.String()), "chat provisioned")
	return nil
}

func (c *Consumer) ensureChat(ctx context.Context, orderID uuid.UUID) (*models.GroupChat, error) {
	chat, err := c.repo.FindChatByOrderID(ctx, orderID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load chat: %w", err)
	}

	chat = &models.GroupChat{
		ID:      uuid.New(),
		OrderID: orderID,
	}
	if err := c.repo.CreateChat(ctx, chat); err != nil {
		if db.IsUniqueViolation(err, chatUniqueIndex) {
			return c.repo.FindChatByOrderID(ctx, orderID)
		}
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

func (c *Consumer) ensureThread(ctx context.Context, order *models.Order, chat *models.GroupChat, assignment *models.Assignment) (string, error) {
	if chat.ExternalThreadID != nil && *chat.ExternalThreadID != "" {
		return *chat.ExternalThreadID, nil
	}

	subject := fmt.Sprintf("Order %s", order.ID)
	threadID, err := c.messenger.CreateThread(ctx, subject)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if err := c.repo.SetChatExternalThread(ctx, chat.ID, threadID); err != nil {
		return "", fmt.Errorf("store thread id: %w", err)
	}
	chat.ExternalThreadID = &threadID

	if assignment != nil && !assignment.ChatCreated {
		if err := c.repo.UpdateAssignmentFlags(ctx, assignment.ID, map[string]any{"chat_created": true}); err != nil {
			return "", fmt.Errorf("flag chat created: %w", err)
		}
	}
	return threadID, nil
}

func (c *Consumer) ensureParticipants(ctx context.Context, order *models.Order, chat *models.GroupChat, threadID string) error {
	type member struct {
		userID uuid.UUID
		role   enums.ParticipantRole
	}
	members := []member{{userID: order.BuyerID, role: enums.ParticipantRoleBuyer}}
	if order.FactoryID != nil {
		members = append(members, member{userID: *order.FactoryID, role: enums.ParticipantRoleFactory})
	}
	if order.RepID != nil {
		members = append(members, member{userID: *order.RepID, role: enums.ParticipantRoleRep})
	}

	for _, m := range members {
		row := &models.ChatParticipant{
			ID:      uuid.New(),
			ChatID:  chat.ID,
			UserID:  m.userID,
			Role:    m.role,
			AddedAt: time.Now().UTC(),
		}
		if err := c.repo.CreateParticipant(ctx, row); err != nil {
			if db.IsUniqueViolation(err, participantUniqueIndex) {
				continue
			}
			return fmt.Errorf("add participant: %w", err)
		}

		contact, err := c.repo.FindExternalContact(ctx, m.userID, messenger.ProviderName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.logg.Warn(c.logg.WithField(ctx, "role", m.role), "participant has no external contact")
				continue
			}
			return fmt.Errorf("load external contact: %w", err)
		}
		if err := c.messenger.AddParticipant(ctx, threadID, contact.Handle, string(m.role)); err != nil {
			return fmt.Errorf("add external participant: %w", err)
		}
	}
	return nil
}
