// ABOUTME: Tests for the conversation engine
// ABOUTME: Covers persist+broadcast flow, assistant bridging, failure isolation

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley-relay/internal/dedupe"
	"github.com/2389/parley-relay/internal/store"
)

// fakeAssistant is a canned Assistant implementation. A non-zero delay
// simulates a slow upstream that honors context cancellation.
type fakeAssistant struct {
	reply string
	err   error
	delay time.Duration
}

func (f *fakeAssistant) Respond(ctx context.Context, userText string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

type engineFixture struct {
	store    *store.MockStore
	registry *Registry
	engine   *Engine
}

func setupEngine(t *testing.T, assistant Assistant, cfg EngineConfig) *engineFixture {
	t.Helper()

	st := store.NewMockStore()
	r := NewRegistry(nil)
	t.Cleanup(r.Close)

	return &engineFixture{
		store:    st,
		registry: r,
		engine:   NewEngine(st, NewBroadcaster(r, nil), assistant, cfg, nil),
	}
}

func TestEngine_NewMessagePersistedAndBroadcast(t *testing.T) {
	f := setupEngine(t, nil, EngineConfig{})
	s := f.registry.Register()

	f.engine.HandleEvent(t.Context(), &Event{
		Type:     EventNewMessage,
		Sender:   "alice",
		Receiver: "bob",
		Text:     "hello",
	})

	ev := recvEvent(t, s.Events())
	require.Equal(t, EventNewMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.NotEmpty(t, ev.Message.ID)
	assert.Equal(t, "alice", ev.Message.Sender)
	assert.Equal(t, "hello", ev.Message.Text)
	assert.Equal(t, store.MessageKindText, ev.Message.Kind)

	// Persisted, not just broadcast
	stored, err := f.store.GetMessage(t.Context(), ev.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Text)
}

func TestEngine_InvalidEventDropped(t *testing.T) {
	f := setupEngine(t, nil, EngineConfig{})
	s := f.registry.Register()

	f.engine.HandleEvent(t.Context(), &Event{Type: EventNewMessage, Sender: "alice"})
	f.engine.HandleEvent(t.Context(), &Event{Type: EventReaction, MessageID: "m1"})
	f.engine.HandleEvent(t.Context(), &Event{Type: "bogus"})

	assertNoEvent(t, s.Events(), 100*time.Millisecond)
}

func TestEngine_ReactionFlow(t *testing.T) {
	f := setupEngine(t, nil, EngineConfig{})

	msg, err := f.store.CreateMessage(t.Context(), &store.Message{Sender: "alice", Receiver: "bob", Text: "hi"})
	require.NoError(t, err)

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{Type: EventReaction, MessageID: msg.ID, Emoji: "🔥"})

	ev := recvEvent(t, s.Events())
	assert.Equal(t, EventReaction, ev.Type)
	assert.Equal(t, msg.ID, ev.MessageID)
	assert.Equal(t, "🔥", ev.Emoji)

	stored, err := f.store.GetMessage(t.Context(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"🔥"}, stored.Reactions)
}

func TestEngine_ReactionToMissingMessageDropped(t *testing.T) {
	f := setupEngine(t, nil, EngineConfig{})
	s := f.registry.Register()

	f.engine.HandleEvent(t.Context(), &Event{Type: EventReaction, MessageID: "no-such", Emoji: "🔥"})

	assertNoEvent(t, s.Events(), 100*time.Millisecond)
}

func TestEngine_ReadFlow(t *testing.T) {
	f := setupEngine(t, nil, EngineConfig{})

	msg, err := f.store.CreateMessage(t.Context(), &store.Message{Sender: "alice", Receiver: "bob", Text: "hi"})
	require.NoError(t, err)

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{Type: EventRead, MessageID: msg.ID})

	ev := recvEvent(t, s.Events())
	assert.Equal(t, EventRead, ev.Type)
	assert.Equal(t, msg.ID, ev.MessageID)

	stored, err := f.store.GetMessage(t.Context(), msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)
}

func TestEngine_DeleteBroadcastAfterRemoval(t *testing.T) {
	f := setupEngine(t, nil, EngineConfig{})

	msg, err := f.store.CreateMessage(t.Context(), &store.Message{Sender: "alice", Receiver: "bob", Text: "hi"})
	require.NoError(t, err)

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{Type: EventDelete, MessageID: msg.ID})

	// The delete is published even though the record is already gone
	ev := recvEvent(t, s.Events())
	assert.Equal(t, EventDelete, ev.Type)
	assert.Equal(t, msg.ID, ev.MessageID)

	_, err = f.store.GetMessage(t.Context(), msg.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A second delete is dropped silently
	f.engine.HandleEvent(t.Context(), &Event{Type: EventDelete, MessageID: msg.ID})
	assertNoEvent(t, s.Events(), 100*time.Millisecond)
}

func TestEngine_StoreUnavailableDropsEvent(t *testing.T) {
	f := setupEngine(t, nil, EngineConfig{})
	f.store.FailWith = errors.New("storage offline")

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{
		Type:     EventNewMessage,
		Sender:   "alice",
		Receiver: "bob",
		Text:     "hello",
	})

	assertNoEvent(t, s.Events(), 100*time.Millisecond)
}

func TestEngine_AssistantReplyPersistedAndBroadcast(t *testing.T) {
	f := setupEngine(t, &fakeAssistant{reply: "hello alice"}, EngineConfig{AssistantID: "assistant-id"})

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{
		Type:     EventNewMessage,
		Sender:   "alice",
		Receiver: "assistant-id",
		Text:     "hi",
	})

	// First the user's own message
	first := recvEvent(t, s.Events())
	require.Equal(t, EventNewMessage, first.Type)
	assert.Equal(t, "alice", first.Message.Sender)

	// Then the assistant reply, addressed back to the sender
	second := recvEvent(t, s.Events())
	require.Equal(t, EventNewMessage, second.Type)
	require.NotNil(t, second.Message)
	assert.Equal(t, "assistant-id", second.Message.Sender)
	assert.Equal(t, "alice", second.Message.Receiver)
	assert.Equal(t, "hello alice", second.Message.Text)
	assert.Equal(t, store.MessageKindText, second.Message.Kind)

	// Reply is persisted too
	stored, err := f.store.GetMessage(t.Context(), second.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello alice", stored.Text)
}

func TestEngine_AssistantNotInvokedForOtherReceivers(t *testing.T) {
	f := setupEngine(t, &fakeAssistant{reply: "should not appear"}, EngineConfig{})

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{
		Type:     EventNewMessage,
		Sender:   "alice",
		Receiver: "bob",
		Text:     "hi bob",
	})

	recvEvent(t, s.Events())
	f.engine.Wait()
	assertNoEvent(t, s.Events(), 100*time.Millisecond)
}

func TestEngine_AssistantFailureProducesNoReply(t *testing.T) {
	f := setupEngine(t, &fakeAssistant{err: errors.New("upstream 500")}, EngineConfig{})

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{
		Type:     EventNewMessage,
		Sender:   "alice",
		Receiver: DefaultAssistantID,
		Text:     "hi",
	})

	// Only the original user message is ever broadcast
	ev := recvEvent(t, s.Events())
	assert.Equal(t, "alice", ev.Message.Sender)

	f.engine.Wait()
	assertNoEvent(t, s.Events(), 200*time.Millisecond)

	messages, err := f.store.ListMessages(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, messages, 1, "no reply message may be synthesized on failure")
}

func TestEngine_AssistantTimeoutTreatedAsFailure(t *testing.T) {
	f := setupEngine(t,
		&fakeAssistant{reply: "too late", delay: time.Second},
		EngineConfig{AssistantTimeout: 20 * time.Millisecond})

	s := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{
		Type:     EventNewMessage,
		Sender:   "alice",
		Receiver: DefaultAssistantID,
		Text:     "hi",
	})

	recvEvent(t, s.Events())
	f.engine.Wait()
	assertNoEvent(t, s.Events(), 200*time.Millisecond)
}

func TestEngine_AssistantReplyReachesSessionsJoinedBeforeReply(t *testing.T) {
	slow := &fakeAssistant{reply: "delayed reply", delay: 50 * time.Millisecond}
	f := setupEngine(t, slow, EngineConfig{})

	sender := f.registry.Register()
	f.engine.HandleEvent(t.Context(), &Event{
		Type:     EventNewMessage,
		Sender:   "alice",
		Receiver: DefaultAssistantID,
		Text:     "hi",
	})
	recvEvent(t, sender.Events())

	// A session that disconnects before the reply does not block it
	f.registry.Unregister(sender.ID)
	observer := f.registry.Register()

	f.engine.Wait()
	ev := recvEvent(t, observer.Events())
	assert.Equal(t, "delayed reply", ev.Message.Text)
}

func TestEngine_DuplicateEventIDSuppressed(t *testing.T) {
	cache := dedupe.New(time.Minute, 100)
	t.Cleanup(cache.Close)
	f := setupEngine(t, nil, EngineConfig{Dedupe: cache})

	s := f.registry.Register()
	ev := &Event{
		Type:     EventNewMessage,
		EventID:  "client-key-1",
		Sender:   "alice",
		Receiver: "bob",
		Text:     "hello",
	}
	f.engine.HandleEvent(t.Context(), ev)
	f.engine.HandleEvent(t.Context(), ev)

	recvEvent(t, s.Events())
	assertNoEvent(t, s.Events(), 100*time.Millisecond)

	messages, err := f.store.ListMessages(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, messages, 1, "resent event must be processed at most once")
}
