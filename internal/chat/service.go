package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

// seqUniqueIndex is the concurrent-insert guard for per-chat ordering.
const seqUniqueIndex = "idx_messages_chat_seq"

// externalDedupIndex keeps replayed webhook deliveries to one row per
// (chat, source, external id).
const externalDedupIndex = "ux_messages_chat_source_external"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the bridge both message directions pass through.
type Service interface {
	Ingest(ctx context.Context, input IngestInput) (*models.Message, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the chat bridge with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) Ingest(ctx context.Context, input IngestInput) (*models.Message, error) {
	if input.ChatID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat id required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid message source")
	}
	switch input.Source {
	case enums.MessageSourceInternal:
		if input.SenderUserID == nil || *input.SenderUserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender required for internal messages")
		}
	case enums.MessageSourceExternal:
		if input.ExternalMessageID == nil || strings.TrimSpace(*input.ExternalMessageID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "external message id required")
		}
	}

	var result *models.Message
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		chat, err := repo.FindChat(ctx, input.ChatID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "chat not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat")
		}

		if input.Source == enums.MessageSourceExternal {
			existing, err := repo.FindMessageByExternalID(ctx, chat.ID, input.Source, *input.ExternalMessageID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check external dedup")
			}
			if existing != nil {
				result = existing
				return nil
			}
		}

		message, err := s.insertWithSeq(ctx, repo, chat, input)
		if err != nil {
			// Concurrent replays of the same external delivery can both pass
			// the dedup pre-check; the loser re-reads the winner's row.
			if input.Source == enums.MessageSourceExternal && db.IsUniqueViolation(err, externalDedupIndex) {
				existing, findErr := repo.FindMessageByExternalID(ctx, chat.ID, input.Source, *input.ExternalMessageID)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load deduped message")
				}
				result = existing
				return nil
			}
			return err
		}

		if input.Source == enums.MessageSourceInternal {
			event := outbox.DomainEvent{
				EventType:     enums.EventMessageRecorded,
				AggregateType: enums.AggregateChat,
				AggregateID:   chat.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{UserID: *input.SenderUserID},
				OccurredAt:    message.SentAt,
				Data: payloads.MessageRecordedEvent{
					ChatID:    chat.ID,
					MessageID: message.ID,
					OrderID:   chat.OrderID,
					Seq:       message.Seq,
					Source:    message.Source,
					SentAt:    message.SentAt,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		result = message
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// insertWithSeq assigns MAX(seq)+1 and retries once when a concurrent insert
// takes the slot first.
func (s *service) insertWithSeq(ctx context.Context, repo Repository, chat *models.GroupChat, input IngestInput) (*models.Message, error) {
	for attempt := 0; attempt < 2; attempt++ {
		maxSeq, err := repo.MaxSeq(ctx, chat.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read chat sequence")
		}

		message := &models.Message{
			ID:                uuid.New(),
			ChatID:            chat.ID,
			Seq:               maxSeq + 1,
			Source:            input.Source,
			SenderUserID:      input.SenderUserID,
			ExternalMessageID: input.ExternalMessageID,
			Body:              input.Body,
			AttachmentURL:     input.AttachmentURL,
			SentAt:            time.Now().UTC(),
		}
		err = repo.CreateMessage(ctx, message)
		if err == nil {
			return message, nil
		}
		if db.IsUniqueViolation(err, seqUniqueIndex) && attempt == 0 {
			continue
		}
		if db.IsUniqueViolation(err, seqUniqueIndex) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "chat sequence contention")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "chat sequence contention")
}
