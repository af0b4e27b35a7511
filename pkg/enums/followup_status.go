package enums

// FollowupStatus tracks a scheduled followup through its lifecycle.
type FollowupStatus string

const (
	FollowupStatusPending    FollowupStatus = "pending"
	FollowupStatusInProgress FollowupStatus = "in_progress"
	FollowupStatusDone       FollowupStatus = "done"
)

var validFollowupStatuses = []FollowupStatus{
	FollowupStatusPending,
	FollowupStatusInProgress,
	FollowupStatusDone,
}

// IsValid reports whether the value matches the canonical followup status enum.
func (f FollowupStatus) IsValid() bool {
	for _, candidate := range validFollowupStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}
