package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func storedVersion(t *testing.T, s *Store) string {
	t.Helper()
	var v string
	if err := s.DB().QueryRow("SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&v); err != nil {
		t.Fatalf("query stored version: %v", err)
	}
	return v
}

func TestNew_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centralgpt.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	if _, err := New("/nonexistent/path/to/db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestNew_Memory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestPing_AfterClose(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected Ping error after Close")
	}
}

func TestTx_Commit(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if _, err := s.DB().ExecContext(ctx, "CREATE TABLE agents (id INTEGER PRIMARY KEY, username TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO agents (id, username) VALUES (1, 'neo')")
		return err
	})
	if err != nil {
		t.Fatalf("Tx commit: %v", err)
	}

	var name string
	if err := s.DB().QueryRowContext(ctx, "SELECT username FROM agents WHERE id = 1").Scan(&name); err != nil {
		t.Fatalf("query after commit: %v", err)
	}
	if name != "neo" {
		t.Errorf("username = %q, want %q", name, "neo")
	}
}

func TestTx_Rollback(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if _, err := s.DB().ExecContext(ctx, "CREATE TABLE agents (id INTEGER PRIMARY KEY, username TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	sentinel := errors.New("abort")
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO agents (id, username) VALUES (1, 'trinity')"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Tx error = %v, want sentinel", err)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM agents").Scan(&count); err != nil {
		t.Fatalf("count after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after rollback, want 0", count)
	}
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	migrations := []Migration{
		{Version: 1, Description: "create history", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE chat_history (id TEXT PRIMARY KEY, message TEXT)")
			return err
		}},
		{Version: 2, Description: "add image column", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("ALTER TABLE chat_history ADD COLUMN image TEXT")
			return err
		}},
	}

	if err := s.Migrate(ctx, "history", migrations); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx, "INSERT INTO chat_history (id, message, image) VALUES ('1', 'hi', '')"); err != nil {
		t.Fatalf("insert after migration: %v", err)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations WHERE component = 'history'").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d migration records, want 2", count)
	}
}

func TestMigrate_SkipsApplied(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	calls := 0
	migrations := []Migration{{Version: 1, Description: "create table", Up: func(tx *sql.Tx) error {
		calls++
		_, err := tx.Exec("CREATE TABLE settings_kv (key TEXT)")
		return err
	}}}

	for i := 0; i < 2; i++ {
		if err := s.Migrate(ctx, "settings", migrations); err != nil {
			t.Fatalf("Migrate #%d: %v", i+1, err)
		}
	}
	if calls != 1 {
		t.Errorf("migration ran %d times, want 1", calls)
	}
}

func TestMigrate_ComponentsIsolated(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	for _, c := range []string{"auth", "testimonial"} {
		table := c + "_data"
		err := s.Migrate(ctx, c, []Migration{{Version: 1, Description: c, Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE " + table + " (id INTEGER)")
			return err
		}}})
		if err != nil {
			t.Fatalf("Migrate(%s): %v", c, err)
		}
	}

	for _, table := range []string{"auth_data", "testimonial_data"} {
		var name string
		err := s.DB().QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	migrations := []Migration{
		{Version: 1, Description: "ok", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE partial_test (id INTEGER)")
			return err
		}},
		{Version: 2, Description: "broken", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("INVALID SQL")
			return err
		}},
	}

	if err := s.Migrate(ctx, "partial", migrations); err == nil {
		t.Fatal("expected error from broken migration")
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations WHERE component = 'partial'").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("committed migrations = %d, want 1", count)
	}
}

func TestPragmas(t *testing.T) {
	s := tempDB(t)
	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	var fk int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		steps   []string
		wantErr error
		want    string
	}{
		{"first run", []string{"0.4.0"}, nil, "0.4.0"},
		{"same version", []string{"0.4.0", "0.4.0"}, nil, "0.4.0"},
		{"upgrade", []string{"0.4.0", "v0.5.0"}, nil, "v0.5.0"},
		{"downgrade rejected", []string{"0.5.0", "0.4.0"}, ErrNewerSchema, "0.5.0"},
		{"dev passes both ways", []string{"dev", "0.5.0", "dev"}, nil, "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tempDB(t)
			ctx := context.Background()
			var err error
			for _, v := range tt.steps {
				err = s.CheckVersion(ctx, v)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckVersion error = %v, want %v", err, tt.wantErr)
			}
			if got := storedVersion(t, s); got != tt.want {
				t.Errorf("stored version = %q, want %q", got, tt.want)
			}
		})
	}
}
