package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records metadata for outbox publish batches.
type PublisherMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_success",
		Help: "Outbox events published successfully.",
	}, []string{"topic"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failure",
		Help: "Outbox events that failed to publish.",
	}, []string{"topic"})
	reg.MustRegister(duration, success, failure)
	return &PublisherMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for a publish batch against the topic.
func (p *PublisherMetrics) ObserveDuration(topic string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the topic.
func (p *PublisherMetrics) IncSuccess(topic string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncFailure increments the failure counter for the topic.
func (p *PublisherMetrics) IncFailure(topic string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(topic)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
