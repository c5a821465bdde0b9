package turso

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// bindDriver selects sqlx's bindvar style; libsql speaks SQLite's "?".
const bindDriver = "sqlite3"

// readRetries bounds retries of read queries on Turso stream errors.
const readRetries = 2

// Wrap adapts a libsql connection for the repositories.
func Wrap(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, bindDriver)
}
