// ABOUTME: Store interface and data types for parley-relay persistence
// ABOUTME: Defines the Message struct and the Store interface for message operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced message does not exist
// (or was already deleted).
var ErrNotFound = errors.New("message not found")

// MessageKind constants for message kinds. Anything other than text is
// a media reference whose body carries a URL.
const (
	MessageKindText  = "text"
	MessageKindImage = "image"
	MessageKindAudio = "audio"
	MessageKindVideo = "video"
	MessageKindFile  = "file"
)

// Message is a single conversation message and its mutable sub-state.
// ID and CreatedAt are assigned by the store at persist time and never
// change afterwards. Reactions is append-only and intentionally not
// deduplicated; Read only ever transitions false to true.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind"` // defaults to "text"
	Reactions []string  `json:"reactions"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for message persistence.
//
// AppendReaction must be atomic: concurrent appends to the same message
// from different callers are all retained, never lost to a
// read-modify-write race. Any error other than ErrNotFound means the
// storage layer is unavailable; callers treat that as a per-request
// failure, not a process-fatal one.
type Store interface {
	// CreateMessage assigns an ID and creation timestamp, persists the
	// message, and returns the full record. Creation timestamps are
	// monotonically non-decreasing per store.
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// AppendReaction appends an emoji to the message's reaction list and
	// returns the updated record.
	AppendReaction(ctx context.Context, id, emoji string) (*Message, error)

	// MarkRead sets the read flag. Idempotent: marking an already-read
	// message again is a no-op that still returns the current record.
	MarkRead(ctx context.Context, id string) (*Message, error)

	// DeleteMessage removes the record. Subsequent operations on the same
	// ID return ErrNotFound; IDs are never reused.
	DeleteMessage(ctx context.Context, id string) error

	// ListMessages returns the most recent messages in chronological
	// order (oldest first). A non-positive limit applies a default.
	ListMessages(ctx context.Context, limit int) ([]*Message, error)

	// Close releases any resources held by the store
	Close() error
}
