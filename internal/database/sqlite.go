package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"rgit-go/internal/database/migrations"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// NewSQLiteDatabase opens the SQLite database at path (or MemoryPath) and
// brings its schema up to date.
func NewSQLiteDatabase(path string) (*SQLDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLDatabase{db: db, dialect: dialectSQLite, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection without migrating it.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLDatabase {
	return &SQLDatabase{db: db, dialect: dialectSQLite}
}

// OpenConnection opens a SQLite connection pool with foreign keys enforced on
// every connection. Write transactions take the database lock when they
// begin, and lock waits time out after five seconds.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (s *SQLDatabase) CheckMigrations() error {
	if s.dialect == dialectPostgres {
		return migrations.CheckPostgresStatus(context.Background(), s.db)
	}
	return migrations.CheckDBMigrationStatus(s.db)
}
