package testutil

import (
	"testing"

	"rgit-go/internal/database"
)

// NewTestDatabase creates an in-memory SQLite database with migrations
// applied. It is closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
