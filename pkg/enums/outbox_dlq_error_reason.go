package enums

// OutboxDLQErrorReason explains why an outbox event was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonConsumer     OutboxDLQErrorReason = "consumer_failure"
)
