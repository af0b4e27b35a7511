package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the publisher loop.
type OutboxMetrics struct {
	published   *prometheus.CounterVec
	failures    *prometheus.CounterVec
	deadLetters prometheus.Counter
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published to the broker.",
	}, []string{"event_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	}, []string{"event_type"})
	deadLetters := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_dead_letters_total",
		Help: "Outbox events moved to the dead letter table.",
	})
	reg.MustRegister(published, failures, deadLetters)
	return &OutboxMetrics{
		published:   published,
		failures:    failures,
		deadLetters: deadLetters,
	}
}

// IncPublished increments the published counter for the event type.
func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailure increments the failure counter for the event type.
func (o *OutboxMetrics) IncFailure(eventType string) {
	if o == nil || o.failures == nil {
		return
	}
	o.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLetter increments the dead letter counter.
func (o *OutboxMetrics) IncDeadLetter() {
	if o == nil || o.deadLetters == nil {
		return
	}
	o.deadLetters.Inc()
}
