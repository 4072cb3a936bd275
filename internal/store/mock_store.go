// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage failures

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
// Set FailWith to make every operation return that error, simulating an
// unavailable storage layer.
type MockStore struct {
	mu          sync.Mutex
	messages    map[string]*Message
	order       []string // message IDs in creation order
	lastCreated time.Time

	FailWith error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		messages: make(map[string]*Message),
	}
}

func (m *MockStore) CreateMessage(ctx context.Context, msg *Message) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	kind := msg.Kind
	if kind == "" {
		kind = MessageKindText
	}

	now := time.Now().UTC()
	if now.Before(m.lastCreated) {
		now = m.lastCreated
	}
	m.lastCreated = now

	stored := &Message{
		ID:        uuid.New().String(),
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Text:      msg.Text,
		Kind:      kind,
		Reactions: []string{},
		CreatedAt: now,
	}
	m.messages[stored.ID] = stored
	m.order = append(m.order, stored.ID)

	return copyMessage(stored), nil
}

func (m *MockStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(msg), nil
}

func (m *MockStore) AppendReaction(ctx context.Context, id, emoji string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	msg.Reactions = append(msg.Reactions, emoji)
	return copyMessage(msg), nil
}

func (m *MockStore) MarkRead(ctx context.Context, id string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	msg.Read = true
	return copyMessage(msg), nil
}

func (m *MockStore) DeleteMessage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	if _, ok := m.messages[id]; !ok {
		return ErrNotFound
	}
	delete(m.messages, id)
	for i, mid := range m.order {
		if mid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockStore) ListMessages(ctx context.Context, limit int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	if limit <= 0 {
		limit = 100
	}

	ids := m.order
	if len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}

	messages := make([]*Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, copyMessage(m.messages[id]))
	}
	return messages, nil
}

func (m *MockStore) Close() error {
	return nil
}

// copyMessage returns a deep copy so callers can't mutate stored state.
func copyMessage(msg *Message) *Message {
	c := *msg
	c.Reactions = append([]string{}, msg.Reactions...)
	return &c
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)
