package enums

// OutboxEventType is the canonical event_type for domain events.
type OutboxEventType string

const (
	EventStatusChanged       OutboxEventType = "order.status_changed"
	EventMilestoneDue        OutboxEventType = "payment.milestone_due"
	EventPaymentRequested    OutboxEventType = "payment.requested"
	EventPaymentReceived     OutboxEventType = "payment.received"
	EventChatProvisioningDue OutboxEventType = "chat.provisioning_due"
	EventMessageRecorded     OutboxEventType = "chat.message_recorded"
	EventAssignmentCreated   OutboxEventType = "assignment.created"
	EventFollowupDue         OutboxEventType = "followup.due"
	EventOrderArchived       OutboxEventType = "order.archived"
)

var validOutboxEventTypes = []OutboxEventType{
	EventStatusChanged,
	EventMilestoneDue,
	EventPaymentRequested,
	EventPaymentReceived,
	EventChatProvisioningDue,
	EventMessageRecorded,
	EventAssignmentCreated,
	EventFollowupDue,
	EventOrderArchived,
}

// IsValid reports whether the value matches the canonical outbox event type enum.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateMilestone  OutboxAggregateType = "payment_milestone"
	AggregateChat       OutboxAggregateType = "group_chat"
	AggregateAssignment OutboxAggregateType = "assignment"
	AggregateFollowup   OutboxAggregateType = "followup"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateMilestone,
	AggregateChat,
	AggregateAssignment,
	AggregateFollowup,
}

// IsValid reports whether the value matches the canonical aggregate type enum.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}
