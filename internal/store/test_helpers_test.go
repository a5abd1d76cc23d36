package store

import (
	"context"
	"testing"

	"github.com/roach88/crosscheck/internal/config"
)

// createTestStore opens an in-memory SQLite store with an items table.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, URL: ":memory:"})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.Exec(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY, value TEXT, qty INTEGER)`); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	return s
}

func seedItem(t *testing.T, s *Store, id int, value string) {
	t.Helper()
	if _, err := s.Exec(context.Background(), `INSERT INTO items (id, value) VALUES (?, ?)`, id, value); err != nil {
		t.Fatalf("seed item %d failed: %v", id, err)
	}
}
