// Package store provides persistent storage for the relay using SQLite.
//
// # Architecture
//
// The Store interface covers the full message lifecycle: create, fetch,
// react, mark read, delete, and list. SQLiteStore is the production
// implementation; MockStore backs tests that need failure injection.
//
// # Data Model
//
// Messages live in two tables:
//
//   - messages: id, sender, receiver, body, kind, read, created_at
//   - message_reactions: append-only emoji rows keyed by message id,
//     removed by cascade when the message is deleted
//
// Reactions are rows rather than a serialized list so that concurrent
// appends never lose entries. Duplicate emoji are kept.
//
// # Timestamps
//
// CreatedAt is assigned by the store and never decreases across
// successive creates, even when the wall clock reads the same nanosecond
// twice. Values are stored as RFC 3339 with nanosecond precision.
//
// # SQLite Configuration
//
// The store uses WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
//   - ErrNotFound: the message does not exist (or was deleted)
//
// All other errors are wrapped with context via fmt.Errorf.
package store
