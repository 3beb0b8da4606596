package storage

import (
	"database/sql"
	"testing"
)

// NewTestDB creates an in-memory SQLite database with the schema applied.
// The database is closed when the test completes.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := prepare(db); err != nil {
		db.Close()
		t.Fatalf("failed to prepare database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
