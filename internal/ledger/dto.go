package ledger

import (
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// ApplyTransitionInput captures the data required to move an order along its
// lifecycle graph.
type ApplyTransitionInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   string
	Notes       *string
}

// TransitionResult reports the accepted transition and the order's new state.
type TransitionResult struct {
	Order      *models.Order
	FromStatus enums.OrderStatus
	ToStatus   enums.OrderStatus
}
