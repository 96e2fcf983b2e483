package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"rgit-go/internal/database/migrations"
)

// NewPostgresDatabase connects to PostgreSQL through pgx and runs pending
// goose migrations.
func NewPostgresDatabase(ctx context.Context, dsn string) (*SQLDatabase, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrations.MigratePostgres(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLDatabase{db: db, dialect: dialectPostgres}, nil
}

// NewPostgresDatabaseFromDB wraps an existing PostgreSQL connection without
// migrating it.
func NewPostgresDatabaseFromDB(db *sql.DB) *SQLDatabase {
	return &SQLDatabase{db: db, dialect: dialectPostgres}
}
