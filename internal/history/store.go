// Package history persists completed chat exchanges and serves them back
// per user.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xdpzq/centralgpt/internal/store"
)

// DefaultLimit is the number of entries returned when no limit is given.
const DefaultLimit = 50

// Entry is one prompt/response exchange.
type Entry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AIName    string    `json:"ai_name"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists history entries in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store and runs history migrations.
func NewStore(ctx context.Context, s *store.Store) (*Store, error) {
	if err := s.Migrate(ctx, "history", migrations); err != nil {
		return nil, fmt.Errorf("history migrations: %w", err)
	}
	return &Store{db: s.DB()}, nil
}

// Save inserts e, assigning an ID and timestamp when missing.
func (s *Store) Save(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (id, username, ai_name, message, response, image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Username, e.AIName, e.Message, e.Response, e.Image, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}
	return nil
}

// ListForUser returns the newest limit entries for username in ascending
// chronological order. limit <= 0 uses DefaultLimit.
func (s *Store) ListForUser(ctx context.Context, username string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, ai_name, message, response, image, created_at FROM (
			SELECT rowid AS seq, * FROM chat_history
			WHERE username = ? COLLATE NOCASE
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		) ORDER BY created_at ASC, seq ASC`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Username, &e.AIName, &e.Message, &e.Response, &e.Image, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteForUser removes every entry for username.
func (s *Store) DeleteForUser(ctx context.Context, username string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_history WHERE username = ? COLLATE NOCASE`, username)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	return res.RowsAffected()
}

var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create chat_history table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE chat_history (
					id         TEXT PRIMARY KEY,
					username   TEXT NOT NULL,
					ai_name    TEXT NOT NULL DEFAULT '',
					message    TEXT NOT NULL,
					response   TEXT NOT NULL,
					image      TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`CREATE INDEX idx_chat_history_user ON chat_history(username, created_at)`)
			return err
		},
	},
}
