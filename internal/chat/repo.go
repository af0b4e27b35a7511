package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a chat repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindChat(ctx context.Context, chatID uuid.UUID) (*models.GroupChat, error) {
	var chat models.GroupChat
	err := r.db.WithContext(ctx).
		Where("id = ?", chatID).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *repository) FindChatByOrderID(ctx context.Context, orderID uuid.UUID) (*models.GroupChat, error) {
	var chat models.GroupChat
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *repository) FindMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("id = ?", messageID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *repository) FindMessageByExternalID(ctx context.Context, chatID uuid.UUID, source enums.MessageSource, externalID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND source = ? AND external_message_id = ?", chatID, source, externalID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *repository) MaxSeq(ctx context.Context, chatID uuid.UUID) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_id = ?", chatID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *repository) CreateMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repository) FindExternalContact(ctx context.Context, userID uuid.UUID, provider string) (*models.ExternalContact, error) {
	var contact models.ExternalContact
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
