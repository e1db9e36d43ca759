// Package storage provides database access and repositories
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrNotFound is returned by updates that match no row. Lookups return (nil, nil) instead.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a user with the same email already exists
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrStaleBalance is returned when a compare-and-swap balance update lost a race
	ErrStaleBalance = errors.New("balance changed concurrently")

	// ErrTransactionFinal is returned when finalizing a transaction that already reached a terminal status
	ErrTransactionFinal = errors.New("transaction already final")
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection. databaseURL is a sqlite file path or
// DSN; foreign keys, WAL and a busy timeout are enabled on every connection.
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("sqlite3", withPragmas(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: gets its own database
	if strings.Contains(databaseURL, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{db}, nil
}

func withPragmas(databaseURL string) string {
	params := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	if !strings.Contains(databaseURL, ":memory:") {
		params = append(params, "_journal_mode=WAL")
	}

	sep := "?"
	if strings.Contains(databaseURL, "?") {
		sep = "&"
	}
	return databaseURL + sep + strings.Join(params, "&")
}

// gooseUpContext is a seam for testing goose.UpContext
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate runs the embedded goose migrations
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if err := gooseUpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
