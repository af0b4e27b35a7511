package enums

import "fmt"

// MilestoneType identifies the payment milestone within an order.
type MilestoneType string

const (
	MilestoneTypeDeposit MilestoneType = "deposit"
	MilestoneTypeUpfront MilestoneType = "upfront"
	MilestoneTypeFinal   MilestoneType = "final"
)

var validMilestoneTypes = []MilestoneType{
	MilestoneTypeDeposit,
	MilestoneTypeUpfront,
	MilestoneTypeFinal,
}

// IsValid reports whether the value matches the canonical milestone type enum.
func (m MilestoneType) IsValid() bool {
	for _, candidate := range validMilestoneTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMilestoneType converts the raw string to MilestoneType.
func ParseMilestoneType(value string) (MilestoneType, error) {
	for _, candidate := range validMilestoneTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid milestone type %q", value)
}

// MilestoneStatus tracks the provider-side resolution of a milestone.
type MilestoneStatus string

const (
	MilestoneStatusPending MilestoneStatus = "pending"
	MilestoneStatusPaid    MilestoneStatus = "paid"
	MilestoneStatusFailed  MilestoneStatus = "failed"
)

var validMilestoneStatuses = []MilestoneStatus{
	MilestoneStatusPending,
	MilestoneStatusPaid,
	MilestoneStatusFailed,
}

// IsValid reports whether the value matches the canonical milestone status enum.
func (m MilestoneStatus) IsValid() bool {
	for _, candidate := range validMilestoneStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}
