// ABOUTME: Conversation engine - validates, persists and broadcasts inbound events
// ABOUTME: Bridges assistant-addressed messages to the completion service asynchronously

package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/parley-relay/internal/dedupe"
	"github.com/2389/parley-relay/internal/metrics"
	"github.com/2389/parley-relay/internal/store"
)

const (
	// persistTimeout bounds store writes issued from detached goroutines,
	// where no request context exists.
	persistTimeout = 5 * time.Second

	// DefaultAssistantID is the reserved receiver identity that routes a
	// message to the assistant bridge.
	DefaultAssistantID = "assistant"

	// DefaultAssistantTimeout bounds a single completion call.
	DefaultAssistantTimeout = 30 * time.Second
)

// Assistant turns an outbound user message into an assistant reply.
// Any failure (network error, non-success response, malformed payload)
// is reported as an error; the engine logs it and the conversation
// simply does not receive a reply.
type Assistant interface {
	Respond(ctx context.Context, userText string) (string, error)
}

// EngineConfig carries the engine's tunable knobs. Zero values fall back
// to the Default* constants; a nil Dedupe disables duplicate suppression.
type EngineConfig struct {
	AssistantID      string
	AssistantTimeout time.Duration
	Dedupe           *dedupe.Cache
}

// Engine orchestrates the message lifecycle: it accepts inbound client
// events, persists them through the store, and publishes outbound events
// to all sessions. It is stateless across events except through the
// store - every mutation goes through the store's atomic operations, and
// no message is cached beyond the scope of one event.
type Engine struct {
	store            store.Store
	broadcaster      *Broadcaster
	assistant        Assistant
	assistantID      string
	assistantTimeout time.Duration
	dedupe           *dedupe.Cache
	logger           *slog.Logger

	wg sync.WaitGroup
}

// NewEngine creates a conversation engine. assistant may be nil, in which
// case assistant-addressed messages are stored and broadcast but never
// answered. Pass nil logger for default.
func NewEngine(st store.Store, broadcaster *Broadcaster, assistant Assistant, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AssistantID == "" {
		cfg.AssistantID = DefaultAssistantID
	}
	if cfg.AssistantTimeout <= 0 {
		cfg.AssistantTimeout = DefaultAssistantTimeout
	}
	return &Engine{
		store:            st,
		broadcaster:      broadcaster,
		assistant:        assistant,
		assistantID:      cfg.AssistantID,
		assistantTimeout: cfg.AssistantTimeout,
		dedupe:           cfg.Dedupe,
		logger:           logger.With("component", "engine"),
	}
}

// AssistantID returns the reserved assistant receiver identity.
func (e *Engine) AssistantID() string {
	return e.assistantID
}

// HandleEvent processes one inbound client event. Each event is handled
// independently; failures never propagate to other sessions and are not
// surfaced back to the originating client.
func (e *Engine) HandleEvent(ctx context.Context, ev *Event) {
	if err := ev.Validate(); err != nil {
		e.logger.Warn("dropping invalid event", "error", err)
		return
	}

	if ev.EventID != "" && e.dedupe != nil && e.dedupe.CheckAndMark(ev.EventID) {
		e.logger.Debug("dropping duplicate event", "event_id", ev.EventID, "event_type", ev.Type)
		return
	}

	metrics.InboundEvents.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case EventNewMessage:
		e.handleNewMessage(ctx, ev)
	case EventReaction:
		e.handleReaction(ctx, ev)
	case EventRead:
		e.handleRead(ctx, ev)
	case EventDelete:
		e.handleDelete(ctx, ev)
	}
}

// handleNewMessage persists and broadcasts a message, then routes it to
// the assistant bridge when addressed to the reserved identity.
func (e *Engine) handleNewMessage(ctx context.Context, ev *Event) {
	msg, err := e.store.CreateMessage(ctx, &store.Message{
		Sender:   ev.Sender,
		Receiver: ev.Receiver,
		Text:     ev.Text,
		Kind:     ev.Kind,
	})
	if err != nil {
		e.logger.Error("store unavailable, dropping message",
			"error", err,
			"sender", ev.Sender,
			"receiver", ev.Receiver)
		return
	}

	e.broadcaster.Publish(&Event{Type: EventNewMessage, Message: msg})

	if msg.Receiver == e.assistantID && e.assistant != nil {
		e.wg.Add(1)
		go e.askAssistant(msg)
	}
}

// askAssistant calls the completion service and re-enters the reply into
// the normal persist+broadcast path as just another new message.
//
// Runs detached from the originating session: a client disconnecting
// mid-flight does not cancel the call, and the resulting broadcast still
// reaches the remaining sessions.
func (e *Engine) askAssistant(userMsg *store.Message) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), e.assistantTimeout)
	defer cancel()

	reply, err := e.assistant.Respond(ctx, userMsg.Text)
	if err != nil {
		metrics.AssistantFailures.Inc()
		e.logger.Error("assistant call failed",
			"error", err,
			"message_id", userMsg.ID,
			"sender", userMsg.Sender)
		return
	}

	persistCtx, persistCancel := context.WithTimeout(context.Background(), persistTimeout)
	defer persistCancel()

	msg, err := e.store.CreateMessage(persistCtx, &store.Message{
		Sender:   e.assistantID,
		Receiver: userMsg.Sender,
		Text:     reply,
		Kind:     store.MessageKindText,
	})
	if err != nil {
		e.logger.Error("store unavailable, dropping assistant reply",
			"error", err,
			"in_reply_to", userMsg.ID)
		return
	}

	metrics.AssistantReplies.Inc()
	e.broadcaster.Publish(&Event{Type: EventNewMessage, Message: msg})
}

func (e *Engine) handleReaction(ctx context.Context, ev *Event) {
	_, err := e.store.AppendReaction(ctx, ev.MessageID, ev.Emoji)
	if err != nil {
		e.dropOnError("reaction", ev.MessageID, err)
		return
	}
	e.broadcaster.Publish(&Event{Type: EventReaction, MessageID: ev.MessageID, Emoji: ev.Emoji})
}

func (e *Engine) handleRead(ctx context.Context, ev *Event) {
	_, err := e.store.MarkRead(ctx, ev.MessageID)
	if err != nil {
		e.dropOnError("read", ev.MessageID, err)
		return
	}
	e.broadcaster.Publish(&Event{Type: EventRead, MessageID: ev.MessageID})
}

// handleDelete removes the record and then still publishes the delete so
// downstream sessions drop their local copies.
func (e *Engine) handleDelete(ctx context.Context, ev *Event) {
	if err := e.store.DeleteMessage(ctx, ev.MessageID); err != nil {
		e.dropOnError("delete", ev.MessageID, err)
		return
	}
	e.broadcaster.Publish(&Event{Type: EventDelete, MessageID: ev.MessageID})
}

// dropOnError logs a dropped mutation. NotFound is expected traffic
// (stale client state after a delete) and logged at debug; anything else
// is a storage failure.
func (e *Engine) dropOnError(op, messageID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		e.logger.Debug("dropping event for missing message", "op", op, "message_id", messageID)
		return
	}
	e.logger.Error("store unavailable, dropping event", "op", op, "message_id", messageID, "error", err)
}

// Wait blocks until all in-flight assistant calls have finished.
// Used during shutdown and in tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}
