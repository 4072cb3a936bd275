// ABOUTME: Wire-level conversation event envelope for inbound and outbound traffic
// ABOUTME: Tagged JSON variant over new_message, reaction, read and delete

package relay

import (
	"fmt"

	"github.com/2389/parley-relay/internal/store"
)

// EventType tags a conversation event.
type EventType string

const (
	EventNewMessage EventType = "new_message"
	EventReaction   EventType = "reaction"
	EventRead       EventType = "read"
	EventDelete     EventType = "delete"
)

// Event is the wire payload for conversation traffic. Inbound events come
// from clients; outbound events mirror the same tags but carry resolved
// state for direct application by receivers.
//
// For new_message the inbound form uses Sender/Receiver/Text/Kind and the
// outbound form carries the persisted Message. Reaction, read and delete
// use MessageID (plus Emoji for reactions) in both directions.
type Event struct {
	Type EventType `json:"type"`

	// EventID is an optional client-supplied idempotency key. When set,
	// a resent event with the same ID within the dedupe window is
	// silently discarded.
	EventID string `json:"event_id,omitempty"`

	// Inbound new_message fields
	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Text     string `json:"text,omitempty"`
	Kind     string `json:"kind,omitempty"`

	// Outbound new_message carries the full persisted record
	Message *store.Message `json:"message,omitempty"`

	// Reaction / read / delete fields
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
}

// Validate checks that an inbound event carries the fields its tag requires.
func (e *Event) Validate() error {
	switch e.Type {
	case EventNewMessage:
		if e.Sender == "" {
			return fmt.Errorf("new_message: sender is required")
		}
		if e.Receiver == "" {
			return fmt.Errorf("new_message: receiver is required")
		}
		if e.Text == "" {
			return fmt.Errorf("new_message: text is required")
		}
	case EventReaction:
		if e.MessageID == "" {
			return fmt.Errorf("reaction: message_id is required")
		}
		if e.Emoji == "" {
			return fmt.Errorf("reaction: emoji is required")
		}
	case EventRead, EventDelete:
		if e.MessageID == "" {
			return fmt.Errorf("%s: message_id is required", e.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
