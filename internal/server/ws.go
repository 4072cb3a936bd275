// ABOUTME: WebSocket session lifecycle - one reader loop and one writer pump per connection
// ABOUTME: Registers sessions on connect and tears them down idempotently on disconnect

package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/2389/parley-relay/internal/metrics"
	"github.com/2389/parley-relay/internal/relay"
)

// handleWebSocket upgrades the connection and runs the session until the
// client disconnects. The writer pump drains the session's outbound
// channel in order, which is what gives each observer FIFO delivery; the
// reader loop serializes that session's inbound events so they queue
// behind any in-flight persistence for the same session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sess := s.registry.Register()
	s.logger.Info("session connected", "session_id", sess.ID, "remote", r.RemoteAddr)

	// Writer pump: outbound channel -> socket. Exits when the session is
	// unregistered (channel closed) or the socket dies.
	go func() {
		for ev := range sess.Events() {
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("session write failed", "session_id", sess.ID, "error", err)
				break
			}
		}
		conn.Close()
	}()

	defer func() {
		s.registry.Unregister(sess.ID)
		conn.Close()
		s.logger.Info("session disconnected", "session_id", sess.ID)
	}()

	var limiter *rate.Limiter
	if s.limits.EventsPerSecond > 0 {
		burst := s.limits.Burst
		if burst <= 0 {
			burst = int(s.limits.EventsPerSecond)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(s.limits.EventsPerSecond), burst)
	}

	for {
		var ev relay.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("session read ended", "session_id", sess.ID, "error", err)
			}
			return
		}

		if limiter != nil && !limiter.Allow() {
			metrics.RateLimited.Inc()
			s.logger.Warn("rate limit exceeded, dropping event",
				"session_id", sess.ID,
				"event_type", ev.Type)
			continue
		}

		s.engine.HandleEvent(r.Context(), &ev)
	}
}
