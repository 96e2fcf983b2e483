package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rgit-go/internal/config"
	"rgit-go/internal/rgit"
)

// NewDatabaseFromConfig creates a Database implementation based on the
// database config type. SQLite databases are stored per user.
func NewDatabaseFromConfig(ctx context.Context, cfg config.DatabaseConfig, userID string) (rgit.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, userID+".db"))
	case "memory":
		return NewSQLiteDatabase(MemoryPath)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres database")
		}
		return NewPostgresDatabase(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
