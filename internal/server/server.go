// ABOUTME: HTTP surface for parley-relay - WebSocket sessions, history API, health
// ABOUTME: Wires chi routing, CORS, metrics and the conversation engine together

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/2389/parley-relay/internal/config"
	"github.com/2389/parley-relay/internal/metrics"
	"github.com/2389/parley-relay/internal/relay"
	"github.com/2389/parley-relay/internal/store"
)

// Server exposes the relay over HTTP: a WebSocket endpoint for live
// sessions, a history API for backfill after connect, health and
// metrics endpoints.
type Server struct {
	engine   *relay.Engine
	registry *relay.Registry
	store    store.Store
	limits   config.LimitsConfig
	metrics  bool
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server over the given engine and registry.
// Pass nil logger for default.
func New(engine *relay.Engine, registry *relay.Registry, st store.Store, limits config.LimitsConfig, metricsEnabled bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   engine,
		registry: registry,
		store:    st,
		limits:   limits,
		metrics:  metricsEnabled,
		logger:   logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Sender identity is taken from the payload as-is, so origin
			// checking buys nothing here. See the identity note in DESIGN.md.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/api/messages", s.handleListMessages)

	if s.metrics {
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.registry.Len(),
	})
}

// handleListMessages returns recent history in chronological order so a
// client can backfill after connecting. Live delivery stays best-effort;
// this is the recovery path.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	messages, err := s.store.ListMessages(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing messages failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage unavailable"})
		return
	}
	if messages == nil {
		messages = []*store.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
