// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	// mu guards lastCreated so creation timestamps never go backwards
	// even if the wall clock does.
	mu          sync.Mutex
	lastCreated time.Time
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys so reaction rows follow their message on delete
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			sender     TEXT NOT NULL,
			receiver   TEXT NOT NULL,
			body       TEXT NOT NULL,
			kind       TEXT NOT NULL DEFAULT 'text',
			read       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);

		-- Reactions live in their own table so an append is a single
		-- INSERT rather than a read-modify-write on the message row.
		CREATE TABLE IF NOT EXISTS message_reactions (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			emoji      TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reactions_message ON message_reactions(message_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// nextCreatedAt returns the creation timestamp for a new message,
// clamped so it never precedes the previous one.
func (s *SQLiteStore) nextCreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(s.lastCreated) {
		now = s.lastCreated
	}
	s.lastCreated = now
	return now
}

// CreateMessage assigns an ID and creation timestamp, persists the
// message, and returns the stored record.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) (*Message, error) {
	kind := msg.Kind
	if kind == "" {
		kind = MessageKindText
	}

	stored := &Message{
		ID:        uuid.New().String(),
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Text:      msg.Text,
		Kind:      kind,
		Reactions: []string{},
		Read:      false,
		CreatedAt: s.nextCreatedAt(),
	}

	query := `
		INSERT INTO messages (id, sender, receiver, body, kind, read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		stored.ID,
		stored.Sender,
		stored.Receiver,
		stored.Text,
		stored.Kind,
		stored.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("created message",
		"id", stored.ID,
		"sender", stored.Sender,
		"receiver", stored.Receiver,
		"kind", stored.Kind)
	return stored, nil
}

// GetMessage retrieves a message by ID, including its reactions.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	query := `
		SELECT id, sender, receiver, body, kind, read, created_at
		FROM messages
		WHERE id = ?
	`

	var msg Message
	var read int
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.Sender,
		&msg.Receiver,
		&msg.Text,
		&msg.Kind,
		&read,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}

	msg.Read = read != 0
	msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	msg.Reactions, err = s.loadReactions(ctx, id)
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

// loadReactions returns the reactions for a message in append order.
func (s *SQLiteStore) loadReactions(ctx context.Context, messageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT emoji FROM message_reactions
		WHERE message_id = ?
		ORDER BY seq ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying reactions: %w", err)
	}
	defer rows.Close()

	reactions := []string{}
	for rows.Next() {
		var emoji string
		if err := rows.Scan(&emoji); err != nil {
			return nil, fmt.Errorf("scanning reaction: %w", err)
		}
		reactions = append(reactions, emoji)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reaction rows: %w", err)
	}
	return reactions, nil
}

// AppendReaction appends an emoji to a message's reaction list.
// The append is a single guarded INSERT, so concurrent appends to the
// same message are all retained. Returns ErrNotFound if the message
// doesn't exist.
func (s *SQLiteStore) AppendReaction(ctx context.Context, id, emoji string) (*Message, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO message_reactions (message_id, emoji, created_at)
		SELECT ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM messages WHERE id = ?)
	`, id, emoji, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return nil, fmt.Errorf("inserting reaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("appended reaction", "id", id, "emoji", emoji)
	return s.GetMessage(ctx, id)
}

// MarkRead sets the read flag on a message. Idempotent: re-marking an
// already-read message still returns the current record. Returns
// ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) (*Message, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("marking message read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("marked message read", "id", id)
	return s.GetMessage(ctx, id)
}

// DeleteMessage removes a message and its reactions.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted message", "id", id)
	return nil
}

// ListMessages retrieves the most recent messages in chronological order
// (oldest first). If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	// Get the N most recent rows, then return them oldest first.
	// rowid breaks ties between messages created in the same instant.
	query := `
		SELECT id, sender, receiver, body, kind, read, created_at
		FROM (
			SELECT rowid, id, sender, receiver, body, kind, read, created_at
			FROM messages
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var read int
		var createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Receiver, &msg.Text, &msg.Kind, &read, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.Read = read != 0
		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	for _, msg := range messages {
		msg.Reactions, err = s.loadReactions(ctx, msg.ID)
		if err != nil {
			return nil, err
		}
	}

	return messages, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
