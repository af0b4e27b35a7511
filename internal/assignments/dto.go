package assignments

import "github.com/google/uuid"

// AssignInput binds a rep to an order.
type AssignInput struct {
	OrderID          uuid.UUID
	RepUserID        uuid.UUID
	AssignedByUserID uuid.UUID
	ActorRole        string
}

// AssignResult reports the created assignment.
type AssignResult struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	OrderID      uuid.UUID `json:"order_id"`
	RepUserID    uuid.UUID `json:"rep_user_id"`
}
