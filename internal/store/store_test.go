package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/database"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T {
	return &v
}

var ctx = context.Background()
