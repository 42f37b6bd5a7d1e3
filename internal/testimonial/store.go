// Package testimonial stores the public testimonial wall managed from the
// admin console.
package testimonial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xdpzq/centralgpt/internal/store"
)

// ErrNotFound is returned when a testimonial does not exist.
var ErrNotFound = errors.New("testimonial not found")

// Testimonial is a quote shown on the public page.
type Testimonial struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	ImageData string    `json:"image_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists testimonials in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store and runs testimonial migrations.
func NewStore(ctx context.Context, s *store.Store) (*Store, error) {
	if err := s.Migrate(ctx, "testimonial", migrations); err != nil {
		return nil, fmt.Errorf("testimonial migrations: %w", err)
	}
	return &Store{db: s.DB()}, nil
}

// Create inserts a testimonial, assigning its ID and timestamp.
func (s *Store) Create(ctx context.Context, text, imageData string) (*Testimonial, error) {
	t := &Testimonial{
		ID:        uuid.New().String(),
		Text:      text,
		ImageData: imageData,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO testimonials (id, text, image_data, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Text, t.ImageData, t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create testimonial: %w", err)
	}
	return t, nil
}

// List returns all testimonials, newest first.
func (s *Store) List(ctx context.Context) ([]Testimonial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, image_data, created_at FROM testimonials ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	defer rows.Close()

	out := []Testimonial{}
	for rows.Next() {
		var t Testimonial
		if err := rows.Scan(&t.ID, &t.Text, &t.ImageData, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete removes a testimonial by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM testimonials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete testimonial: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create testimonials table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE testimonials (
					id         TEXT PRIMARY KEY,
					text       TEXT NOT NULL,
					image_data TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}
