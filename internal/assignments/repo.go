package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
)

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an assignments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrderRep binds the rep only when the slot is still empty. The returned
// count is zero when another assignment won.
func (r *repositoryImpl) SetOrderRep(ctx context.Context, orderID, repID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND rep_id IS NULL", orderID).
		Updates(map[string]any{
			"rep_id":     repID,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repositoryImpl) FindAssignmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repositoryImpl) UpdateAssignmentFlags(ctx context.Context, assignmentID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", assignmentID).
		Updates(updates).Error
}

func (r *repositoryImpl) FindChatByOrderID(ctx context.Context, orderID uuid.UUID) (*models.GroupChat, error) {
	var chat models.GroupChat
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *repositoryImpl) CreateChat(ctx context.Context, chat *models.GroupChat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *repositoryImpl) SetChatExternalThread(ctx context.Context, chatID uuid.UUID, threadID string) error {
	return r.db.WithContext(ctx).
		Model(&models.GroupChat{}).
		Where("id = ?", chatID).
		Updates(map[string]any{
			"external_thread_id": threadID,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (r *repositoryImpl) CreateParticipant(ctx context.Context, participant *models.ChatParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *repositoryImpl) FindExternalContact(ctx context.Context, userID uuid.UUID, provider string) (*models.ExternalContact, error) {
	var contact models.ExternalContact
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
