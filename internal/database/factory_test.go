package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgit-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory database", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(ctx, config.DatabaseConfig{Type: "memory"}, "alex")
		require.NoError(t, err)
		require.NotNil(t, got)
		defer got.Close()
		assert.NoError(t, got.CheckMigrations())
	})

	t.Run("sqlite database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		got, err := NewDatabaseFromConfig(ctx, config.DatabaseConfig{Type: "sqlite", DataDir: dir}, "alex")
		require.NoError(t, err)
		defer got.Close()

		_, err = os.Stat(filepath.Join(dir, "alex.db"))
		assert.NoError(t, err)
	})

	t.Run("sqlite without data dir", func(t *testing.T) {
		_, err := NewDatabaseFromConfig(ctx, config.DatabaseConfig{Type: "sqlite"}, "alex")
		assert.Error(t, err)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		_, err := NewDatabaseFromConfig(ctx, config.DatabaseConfig{Type: "postgres"}, "alex")
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewDatabaseFromConfig(ctx, config.DatabaseConfig{Type: "mysql"}, "alex")
		assert.ErrorContains(t, err, "unknown database type")
	})
}
