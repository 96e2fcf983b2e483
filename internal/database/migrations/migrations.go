// Package migrations holds the embedded schema migrations: golang-migrate
// files for SQLite and goose files for PostgreSQL.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pressly/goose/v3"
)

//go:embed files/*.sql
var sqliteFiles embed.FS

//go:embed postgres/*.sql
var postgresFiles embed.FS

// CheckDBMigrationStatus verifies that a SQLite database schema is at the
// latest embedded version.
func CheckDBMigrationStatus(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db, which the caller owns.

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("failed to get database version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	src, err := iofs.New(sqliteFiles, "files")
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	latest, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("failed to determine latest version: %w", err)
	}
	return compareVersions(int64(version), int64(latest))
}

// MigrateUp runs all pending SQLite migrations.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(sqliteFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// latestVersion returns the highest version available in src.
func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			// Next fails once there are no more migrations.
			return v, nil
		}
		v = next
	}
}

func compareVersions(current, latest int64) error {
	switch {
	case current < latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			current, latest, latest-current)
	case current > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			current, latest)
	}
	return nil
}

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func withGoose(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(postgresFiles)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return fn()
}

// MigratePostgres runs all pending PostgreSQL migrations.
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	return withGoose(func() error {
		if err := goose.UpContext(ctx, db, "postgres"); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	})
}

// CheckPostgresStatus verifies that a PostgreSQL schema is at the latest
// embedded version.
func CheckPostgresStatus(ctx context.Context, db *sql.DB) error {
	return withGoose(func() error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to get database version: %w", err)
		}
		if current == 0 {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		all, err := goose.CollectMigrations("postgres", 0, goose.MaxVersion)
		if err != nil {
			return fmt.Errorf("failed to read migration files: %w", err)
		}
		last, err := all.Last()
		if err != nil {
			return fmt.Errorf("failed to determine latest version: %w", err)
		}
		return compareVersions(current, last.Version)
	})
}
