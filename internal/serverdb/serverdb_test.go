package serverdb

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestDB(t *testing.T) *ServerDB {
	t.Helper()
	db, err := Open(StoreConfig{TestMode: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestUser resolves a fresh identity and returns its user ID.
func newTestUser(t *testing.T, db *ServerDB, subject string) string {
	t.Helper()
	id, err := db.ResolveOrCreateUser("test", subject, subject+"@example.com", "User "+subject)
	if err != nil {
		t.Fatalf("resolve user %s: %v", subject, err)
	}
	return id
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(StoreConfig{})
	if err == nil {
		t.Fatal("expected error when DB_PATH is unset")
	}
	if !strings.Contains(err.Error(), "DB_PATH") {
		t.Errorf("error should name DB_PATH: %v", err)
	}
}

func TestOpenAllowInMemory(t *testing.T) {
	db, err := Open(StoreConfig{AllowInMemory: true})
	if err != nil {
		t.Fatalf("open with ALLOW_IN_MEMORY: %v", err)
	}
	defer db.Close()
	if db.Path() != ":memory:" {
		t.Errorf("path = %q, want :memory:", db.Path())
	}
}

func TestOpenStrictRejectsInMemory(t *testing.T) {
	_, err := Open(StoreConfig{Path: ":memory:", Strict: true, TestMode: true})
	if err == nil {
		t.Fatal("expected error for in-memory path under STRICT")
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "server.db")
	db, err := Open(StoreConfig{Path: path})
	if err != nil {
		t.Fatalf("open with nested path: %v", err)
	}
	db.Close()
}

func TestSchemaVersionAfterOpen(t *testing.T) {
	db := newTestDB(t)
	if got := db.getSchemaVersion(); got != ServerSchemaVersion {
		t.Errorf("schema version = %d, want %d", got, ServerSchemaVersion)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := newTestDB(t)
	n, err := db.RunMigrations()
	if err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if n != 0 {
		t.Errorf("applied %d migrations on an up-to-date db, want 0", n)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Errorf("ping: %v", err)
	}
}
