// ABOUTME: Session registry tracking currently connected client sessions
// ABOUTME: Pure bookkeeping - register, unregister and visit live sessions

package relay

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/parley-relay/internal/metrics"
)

const (
	// sessionBufferSize is the outbound channel buffer for each session.
	sessionBufferSize = 64
)

// Session is one live client connection. It carries no user affinity:
// every session receives every broadcast event and the client filters by
// sender/receiver.
type Session struct {
	ID string

	mu       sync.RWMutex
	outbound chan *Event
	closed   bool
}

// Events returns the session's outbound event channel. The channel is
// closed when the session is unregistered.
func (s *Session) Events() <-chan *Event {
	return s.outbound
}

// send delivers an event to the session without blocking.
// Returns false if the session is closed or its buffer is full.
func (s *Session) send(ev *Event) bool {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false
	}
	// Hold the read lock while sending to prevent close during send
	select {
	case s.outbound <- ev:
		s.mu.RUnlock()
		return true
	default:
		s.mu.RUnlock()
		return false
	}
}

// close marks the session closed and closes its outbound channel.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.outbound)
}

// Registry tracks currently connected sessions. Registration and
// unregistration are concurrent-safe; ForEach visits a snapshot so a
// session mid-disconnect is either fully included or fully excluded.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewRegistry creates a session registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.With("component", "registry"),
	}
}

// Register creates a new session with a fresh connection identifier.
func (r *Registry) Register() *Session {
	s := &Session{
		ID:       uuid.New().String(),
		outbound: make(chan *Event, sessionBufferSize),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	total := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(total))
	r.logger.Debug("session registered", "session_id", s.ID, "total_sessions", total)
	return s
}

// Unregister removes a session and closes its outbound channel.
// Idempotent: unregistering an unknown or already-removed session is a
// no-op and never affects other sessions.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	total := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return
	}

	s.close()
	metrics.ActiveSessions.Set(float64(total))
	r.logger.Debug("session unregistered", "session_id", sessionID, "total_sessions", total)
}

// ForEach visits every live session. The visit runs over a snapshot
// taken under the lock, so sessions added or removed concurrently are
// either fully visited or not visited at all.
func (r *Registry) ForEach(visit func(*Session)) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		visit(s)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close unregisters every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	metrics.ActiveSessions.Set(0)
	r.logger.Debug("registry closed", "closed_sessions", len(sessions))
}
