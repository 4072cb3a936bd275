// ABOUTME: In-memory fan-out broadcaster delivering events to all live sessions
// ABOUTME: Best-effort per-session delivery, FIFO per receiving session

package relay

import (
	"log/slog"

	"github.com/2389/parley-relay/internal/metrics"
)

// Broadcaster delivers events to every registered session. Delivery is
// best-effort: a session whose buffer is full or whose transport is gone
// has the event silently dropped, without blocking or failing delivery
// to the others. Per receiving session, events arrive in the order
// Publish was called; no ordering is promised across sessions.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry.
// Pass nil logger for default.
func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		registry: registry,
		logger:   logger.With("component", "broadcaster"),
	}
}

// Publish sends an event to every currently registered session.
// No acknowledgment, retry, or backpressure signal is returned.
func (b *Broadcaster) Publish(ev *Event) {
	b.registry.ForEach(func(s *Session) {
		if !s.send(ev) {
			// Session closed or buffer full - drop for this session only
			metrics.DroppedDeliveries.Inc()
			b.logger.Debug("dropped event for slow or closed session",
				"session_id", s.ID,
				"event_type", ev.Type)
		}
	})
}
