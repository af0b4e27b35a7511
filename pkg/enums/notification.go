package enums

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationTypeStatusChanged     NotificationType = "status_changed"
	NotificationTypePaymentRequested  NotificationType = "payment_requested"
	NotificationTypePaymentReceived   NotificationType = "payment_received"
	NotificationTypeAssignmentCreated NotificationType = "assignment_created"
	NotificationTypeFollowupDue       NotificationType = "followup_due"
	NotificationTypeOrderArchived     NotificationType = "order_archived"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeStatusChanged,
	NotificationTypePaymentRequested,
	NotificationTypePaymentReceived,
	NotificationTypeAssignmentCreated,
	NotificationTypeFollowupDue,
	NotificationTypeOrderArchived,
}

// IsValid reports whether the value matches the canonical notification type enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}
