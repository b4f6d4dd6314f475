// Package metrics provides Prometheus metrics for news-insight.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts routed messages by type and outcome.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsinsight",
			Name:      "messages_total",
			Help:      "Total number of routed messages",
		},
		[]string{"type", "status"},
	)

	// MessageDuration measures asynchronous handler duration.
	MessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsinsight",
			Name:      "message_duration_seconds",
			Help:      "Duration of asynchronous message handlers in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// ModelFallbacksTotal counts gateway fallbacks by operation and reason.
	ModelFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsinsight",
			Name:      "model_fallbacks_total",
			Help:      "Total number of model gateway fallbacks",
		},
		[]string{"operation", "reason"},
	)

	// EventSubscribers tracks connected broadcast subscribers.
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsinsight",
			Name:      "event_subscribers",
			Help:      "Number of connected event subscribers",
		},
	)
)

// RecordMessage records a routed message.
func RecordMessage(msgType, status string, seconds float64) {
	MessagesTotal.WithLabelValues(msgType, status).Inc()
	if seconds > 0 {
		MessageDuration.WithLabelValues(msgType).Observe(seconds)
	}
}

// RecordFallback records a gateway fallback.
func RecordFallback(operation, reason string) {
	ModelFallbacksTotal.WithLabelValues(operation, reason).Inc()
}
