package payments

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

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindActiveMilestone returns the live row for (order, type). Failed rows do
// not count; they free the slot for a fresh request.
func (r *repository) FindActiveMilestone(ctx context.Context, orderID uuid.UUID, milestoneType enums.MilestoneType) (*models.PaymentMilestone, error) {
	var milestone models.PaymentMilestone
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND milestone_type = ? AND status <> ?", orderID, milestoneType, enums.MilestoneStatusFailed).
		First(&milestone).Error
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (r *repository) FindMilestoneByIntentID(ctx context.Context, providerIntentID string) (*models.PaymentMilestone, error) {
	var milestone models.PaymentMilestone
	err := r.db.WithContext(ctx).
		Where("provider_intent_id = ?", providerIntentID).
		First(&milestone).Error
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (r *repository) CreateMilestone(ctx context.Context, milestone *models.PaymentMilestone) error {
	return r.db.WithContext(ctx).Create(milestone).Error
}

func (r *repository) UpdateMilestone(ctx context.Context, milestoneID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentMilestone{}).
		Where("id = ?", milestoneID).
		Updates(updates).Error
}

func (r *repository) InsertProcessedEvent(ctx context.Context, event *models.ProcessedProviderEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
