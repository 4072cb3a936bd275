// ABOUTME: Prometheus collectors for relay observability
// ABOUTME: Counts inbound events, dropped deliveries, sessions and assistant calls

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InboundEvents counts accepted inbound events by type.
	InboundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "relay",
		Name:      "inbound_events_total",
		Help:      "Inbound conversation events accepted for processing, by type.",
	}, []string{"type"})

	// DroppedDeliveries counts per-session broadcast deliveries dropped
	// because the session was closed or its buffer was full.
	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "relay",
		Name:      "dropped_deliveries_total",
		Help:      "Broadcast deliveries dropped for slow or closed sessions.",
	})

	// ActiveSessions tracks the number of currently registered sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parley",
		Subsystem: "relay",
		Name:      "active_sessions",
		Help:      "Currently connected client sessions.",
	})

	// RateLimited counts inbound events rejected by the per-session limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "relay",
		Name:      "rate_limited_events_total",
		Help:      "Inbound events dropped by the per-session rate limiter.",
	})

	// AssistantReplies counts successful assistant completions.
	AssistantReplies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "assistant",
		Name:      "replies_total",
		Help:      "Assistant replies persisted and broadcast.",
	})

	// AssistantFailures counts failed assistant calls (network errors,
	// upstream failures, timeouts, malformed replies).
	AssistantFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "assistant",
		Name:      "failures_total",
		Help:      "Assistant calls that returned no usable reply.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
