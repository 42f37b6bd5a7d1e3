package backup_test

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xdpzq/centralgpt/internal/backup"
	"github.com/xdpzq/centralgpt/internal/store"
	"github.com/xdpzq/centralgpt/internal/testimonial"
)

// createTestDB creates a CentralGPT database holding two testimonials.
func createTestDB(t *testing.T, dir string) string {
	t.Helper()

	dbPath := filepath.Join(dir, "centralgpt.db")
	db, err := store.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ts, err := testimonial.NewStore(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"fast answers", "never down"} {
		if _, err := ts.Create(context.Background(), text, ""); err != nil {
			t.Fatal(err)
		}
	}
	return dbPath
}

func createTestConfig(t *testing.T, dir string) string {
	t.Helper()

	cfgPath := filepath.Join(dir, "centralgpt.yaml")
	if err := os.WriteFile(cfgPath, []byte("server:\n  port: 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

// verifyDBContents checks that the restored database has both testimonials.
func verifyDBContents(t *testing.T, dbPath string) {
	t.Helper()

	db, err := store.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ts, err := testimonial.NewStore(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	list, err := ts.List(context.Background())
	if err != nil {
		t.Fatalf("listing restored testimonials: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 testimonials, got %d", len(list))
	}
}

func TestBackupRestore(t *testing.T) {
	tests := []struct {
		name       string
		withConfig bool
		missingDB  bool
		preexist   bool
		force      bool
		backupErr  string
		restoreErr string
	}{
		{name: "round trip with config", withConfig: true},
		{name: "round trip without config"},
		{name: "missing database", missingDB: true, backupErr: "database file not found"},
		{name: "no force existing DB", preexist: true, restoreErr: "file already exists"},
		{name: "force existing DB", preexist: true, force: true},
	}

	ctx := context.Background()

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srcDir := t.TempDir()
			restoreDir := t.TempDir()
			archivePath := filepath.Join(t.TempDir(), "nested", "backup.tar.gz")

			dbPath := filepath.Join(srcDir, "missing.db")
			if !tc.missingDB {
				dbPath = createTestDB(t, srcDir)
			}
			cfgPath := ""
			if tc.withConfig {
				cfgPath = createTestConfig(t, srcDir)
			}
			if tc.preexist {
				if err := os.WriteFile(filepath.Join(restoreDir, "centralgpt.db"), []byte("stale"), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			err := backup.Backup(ctx, dbPath, cfgPath, archivePath)
			if tc.backupErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.backupErr) {
					t.Fatalf("backup error = %v, want containing %q", err, tc.backupErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected backup error: %v", err)
			}

			restored, err := backup.Restore(ctx, archivePath, restoreDir, tc.force)
			if tc.restoreErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.restoreErr) {
					t.Fatalf("restore error = %v, want containing %q", err, tc.restoreErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected restore error: %v", err)
			}

			verifyDBContents(t, filepath.Join(restoreDir, "centralgpt.db"))

			wantFiles := 1
			if tc.withConfig {
				wantFiles = 2
				data, err := os.ReadFile(filepath.Join(restoreDir, "centralgpt.yaml"))
				if err != nil || len(data) == 0 {
					t.Fatalf("config not restored: %v", err)
				}
			}
			if len(restored) != wantFiles {
				t.Errorf("restored %d files, want %d", len(restored), wantFiles)
			}
		})
	}
}

func TestRestore_CorruptArchive(t *testing.T) {
	corruptPath := filepath.Join(t.TempDir(), "corrupt.tar.gz")
	if err := os.WriteFile(corruptPath, []byte("not a valid gzip"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := backup.Restore(context.Background(), corruptPath, t.TempDir(), false); err == nil {
		t.Fatal("expected error for corrupt archive, got nil")
	}
}

// writeArchive builds a tar.gz holding one regular file per entry.
func writeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "crafted.tar.gz")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for name, body := range entries {
		hdr := &tar.Header{Name: name, Size: int64(len(body)), Mode: 0o644, Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gw.Close()
	f.Close()
	return archivePath
}

func TestRestore_PathTraversal(t *testing.T) {
	for _, name := range []string{"../../../etc/evil.db", "/etc/evil.db"} {
		t.Run(name, func(t *testing.T) {
			archivePath := writeArchive(t, map[string]string{name: "evil"})

			_, err := backup.Restore(context.Background(), archivePath, t.TempDir(), false)
			if err == nil || !strings.Contains(err.Error(), "path traversal") {
				t.Fatalf("err = %v, want path traversal", err)
			}
		})
	}
}

func TestRestore_NoDBInArchive(t *testing.T) {
	archivePath := writeArchive(t, map[string]string{"centralgpt.yaml": "hello"})

	_, err := backup.Restore(context.Background(), archivePath, t.TempDir(), false)
	if err == nil || !strings.Contains(err.Error(), "does not contain a .db file") {
		t.Fatalf("err = %v, want missing .db error", err)
	}
}

func TestRestore_CanceledContext(t *testing.T) {
	archivePath := writeArchive(t, map[string]string{"centralgpt.db": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := backup.Restore(ctx, archivePath, t.TempDir(), false); err == nil {
		t.Fatal("expected context error")
	}
}

func TestDefaultArchiveName(t *testing.T) {
	got := backup.DefaultArchiveName(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	if got != "centralgpt-backup-20250304-050607.tar.gz" {
		t.Errorf("name = %q", got)
	}
}
