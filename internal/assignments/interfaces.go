package assignments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
)

// Repository exposes persistence helpers for assignments and chat
// provisioning.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SetOrderRep(ctx context.Context, orderID, repID uuid.UUID) (int64, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) error
	FindAssignmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Assignment, error)
	UpdateAssignmentFlags(ctx context.Context, assignmentID uuid.UUID, updates map[string]any) error
	FindChatByOrderID(ctx context.Context, orderID uuid.UUID) (*models.GroupChat, error)
	CreateChat(ctx context.Context, chat *models.GroupChat) error
	SetChatExternalThread(ctx context.Context, chatID uuid.UUID, threadID string) error
	CreateParticipant(ctx context.Context, participant *models.ChatParticipant) error
	FindExternalContact(ctx context.Context, userID uuid.UUID, provider string) (*models.ExternalContact, error)
}

// Messenger is the provider surface used for thread provisioning.
type Messenger interface {
	CreateThread(ctx context.Context, subject string) (string, error)
	AddParticipant(ctx context.Context, threadID, handle, role string) error
}
