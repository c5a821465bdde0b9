package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/emiliopalmerini/socialab/internal/infrastructure/config"
)

// DriverName is the database/sql driver registered by go-libsql.
const DriverName = "libsql"

// Client wraps a SQL database connection with Turso-specific retry logic.
type Client struct {
	*sql.DB
}

// Options configures the database client behavior.
type Options struct {
	Ping bool
}

// New creates a new database client with default options (ping enabled).
func New(cfg config.Database) (*Client, error) {
	return NewWithOptions(cfg, Options{Ping: true})
}

// NewWithOptions creates a database client with custom options.
func NewWithOptions(cfg config.Database, opts Options) (*Client, error) {
	connStr, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.IsRemote() {
		// Configure connection pool for Turso's Hrana protocol.
		// Turso aggressively closes idle streams, causing "stream not found"
		// errors on stale connections.
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(0)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(0)
	} else {
		// A single writer avoids SQLITE_BUSY on the local file.
		db.SetMaxOpenConns(1)
	}

	if opts.Ping {
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	}

	return &Client{DB: db}, nil
}

// DSN builds the libsql connection string. Local paths get their parent
// directory created.
func DSN(cfg config.Database) (string, error) {
	if cfg.IsRemote() {
		return cfg.URL + "?authToken=" + cfg.AuthToken, nil
	}
	if cfg.Path == "" {
		return "", fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return "file:" + cfg.Path, nil
}

// IsStreamError checks if an error is a Turso "stream not found" error.
func IsStreamError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "stream not found")
}

// WithRetry executes a function with retry logic for Turso stream errors.
// It retries up to maxRetries times when encountering "stream not found" errors.
func WithRetry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}

		if !IsStreamError(err) || attempt == maxRetries {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}

	return result, err
}
