package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	"github.com/craftlinehq/craftline-backend/pkg/payprovider"
)

// Repository defines persistence operations for payment milestones.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindActiveMilestone(ctx context.Context, orderID uuid.UUID, milestoneType enums.MilestoneType) (*models.PaymentMilestone, error)
	FindMilestoneByIntentID(ctx context.Context, providerIntentID string) (*models.PaymentMilestone, error)
	CreateMilestone(ctx context.Context, milestone *models.PaymentMilestone) error
	UpdateMilestone(ctx context.Context, milestoneID uuid.UUID, updates map[string]any) error
	InsertProcessedEvent(ctx context.Context, event *models.ProcessedProviderEvent) error
}

// PaymentProvider abstracts intent creation with the external processor.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, req payprovider.IntentRequest) (*payprovider.Intent, error)
}
