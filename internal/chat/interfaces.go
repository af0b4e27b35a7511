package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// Repository defines persistence operations for group chats and messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindChat(ctx context.Context, chatID uuid.UUID) (*models.GroupChat, error)
	FindChatByOrderID(ctx context.Context, orderID uuid.UUID) (*models.GroupChat, error)
	FindMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error)
	FindMessageByExternalID(ctx context.Context, chatID uuid.UUID, source enums.MessageSource, externalID string) (*models.Message, error)
	MaxSeq(ctx context.Context, chatID uuid.UUID) (int64, error)
	CreateMessage(ctx context.Context, message *models.Message) error
	FindExternalContact(ctx context.Context, userID uuid.UUID, provider string) (*models.ExternalContact, error)
}

// Messenger delivers internal messages to the external provider thread.
type Messenger interface {
	SendMessage(ctx context.Context, threadID, body string) (string, error)
}
