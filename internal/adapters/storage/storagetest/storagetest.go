// Package storagetest opens migrated in-memory databases for store tests.
package storagetest

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"signups/internal/adapters/storage"
)

// OpenDB returns a migrated in-memory SQLite database closed at test end.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(context.Background(), db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return db
}

// SeedMember inserts an active account plus a completed profile.
func SeedMember(t testing.TB, db *sql.DB, id, name, role string, carSpaces int, isAdmin bool) {
	t.Helper()
	exec(t, db, "INSERT INTO account (id, email, status, created_at) VALUES (?, ?, 'active', '2025-01-01T00:00:00Z')",
		id, id+"@club.org.nz")
	exec(t, db, "INSERT INTO users (id, name, email, role, student_number, is_admin, car_spaces) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, name, id+"@club.org.nz", role, "21"+id, storage.BoolInt(isAdmin), carSpaces)
}

func exec(t testing.TB, db *sql.DB, q string, args ...any) {
	t.Helper()
	if _, err := db.Exec(q, args...); err != nil {
		t.Fatalf("seed %q: %v", q, err)
	}
}
