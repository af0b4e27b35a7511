package enums

import "fmt"

// OrderStatus is the lifecycle state for orders and samples. The two kinds
// share the enum but walk different edges; the ledger owns the edge tables.
type OrderStatus string

const (
	// Order flow.
	OrderStatusRequested    OrderStatus = "requested"
	OrderStatusConfirmed    OrderStatus = "confirmed"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusQualityCheck OrderStatus = "quality_check"
	OrderStatusShipped      OrderStatus = "shipped"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusArchived     OrderStatus = "archived"

	// Sample flow.
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInReview   OrderStatus = "in_review"
	OrderStatusApproved   OrderStatus = "approved"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusSamplePaid OrderStatus = "sample_paid"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusRequested,
	OrderStatusConfirmed,
	OrderStatusInProduction,
	OrderStatusQualityCheck,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusArchived,
	OrderStatusAssigned,
	OrderStatusInReview,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusSamplePaid,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts the raw string to OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
