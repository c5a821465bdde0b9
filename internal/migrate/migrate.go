package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emiliopalmerini/socialab/migrations"
)

// Migration represents a single database migration with up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// EnsureMigrationsTable creates the schema_migrations table if it doesn't exist.
func EnsureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// GetCurrentVersion returns the current migration version and dirty state.
func GetCurrentVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	var version int
	var dirty int

	err := db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return version, dirty == 1, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// setVersion records the migration version and dirty state.
func setVersion(ctx context.Context, db execer, version int, dirty bool) error {
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}

	if version > 0 {
		_, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirtyInt)
		return err
	}
	return nil
}

// LoadMigrations reads all embedded migration files and returns them sorted by version.
func LoadMigrations() ([]Migration, error) {
	return loadFrom(migrations.FS)
}

func loadFrom(fsys fs.FS) ([]Migration, error) {
	var result []Migration

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := upPattern.FindStringSubmatch(filepath.Base(path))
		if matches == nil {
			return nil
		}

		version, _ := strconv.Atoi(matches[1])
		name := matches[2]

		upSQL, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		downPath := fmt.Sprintf("%03d_%s.down.sql", version, name)
		downSQL, err := fs.ReadFile(fsys, downPath)
		if err != nil {
			downSQL = nil
		}

		result = append(result, Migration{
			Version: version,
			Name:    name,
			UpSQL:   string(upSQL),
			DownSQL: string(downSQL),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})

	return result, nil
}

// RunMigration executes a single migration (up or down) in a transaction.
// The dirty flag is set outside the transaction so a crash mid-way is visible.
func RunMigration(ctx context.Context, db *sql.DB, m Migration, up bool) error {
	direction := "up"
	sqlContent := m.UpSQL
	targetVersion := m.Version
	if !up {
		direction = "down"
		sqlContent = m.DownSQL
		targetVersion = m.Version - 1
	}

	zerolog.Ctx(ctx).Info().
		Str("direction", direction).
		Int("version", m.Version).
		Str("name", m.Name).
		Msg("applying migration")

	if err := setVersion(ctx, db, m.Version, true); err != nil {
		return fmt.Errorf("failed to set dirty flag: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range SplitSQL(sqlContent) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d %s: %w\nSQL: %s", m.Version, direction, err, stmt)
		}
	}

	if err := setVersion(ctx, tx, targetVersion, false); err != nil {
		return fmt.Errorf("failed to clear dirty flag: %w", err)
	}

	return tx.Commit()
}

// SplitSQL splits a SQL script on semicolons, dropping empty statements.
func SplitSQL(script string) []string {
	var stmts []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// MigrateUp runs all pending up migrations and returns how many were applied.
func MigrateUp(ctx context.Context, db *sql.DB, allMigrations []Migration, currentVersion int) (int, error) {
	count := 0
	for _, m := range allMigrations {
		if m.Version <= currentVersion {
			continue
		}

		if err := RunMigration(ctx, db, m, true); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// MigrateUpTo runs up migrations to a specific version.
func MigrateUpTo(ctx context.Context, db *sql.DB, allMigrations []Migration, currentVersion, targetVersion int) error {
	for _, m := range allMigrations {
		if m.Version <= currentVersion {
			continue
		}
		if m.Version > targetVersion {
			break
		}

		if err := RunMigration(ctx, db, m, true); err != nil {
			return err
		}
	}
	return nil
}

// MigrateDownTo runs down migrations to a specific version.
func MigrateDownTo(ctx context.Context, db *sql.DB, allMigrations []Migration, currentVersion, targetVersion int) error {
	for i := len(allMigrations) - 1; i >= 0; i-- {
		m := allMigrations[i]
		if m.Version > currentVersion {
			continue
		}
		if m.Version <= targetVersion {
			break
		}

		if m.DownSQL == "" {
			return fmt.Errorf("no down migration for version %d", m.Version)
		}

		if err := RunMigration(ctx, db, m, false); err != nil {
			return err
		}
	}
	return nil
}

// prepare ensures the bookkeeping table and returns the clean current version.
func prepare(ctx context.Context, db *sql.DB) (int, []Migration, error) {
	if err := EnsureMigrationsTable(ctx, db); err != nil {
		return 0, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, dirty, err := GetCurrentVersion(ctx, db)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return 0, nil, fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	allMigrations, err := LoadMigrations()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	return currentVersion, allMigrations, nil
}

// RunAll runs all pending migrations on the provided database.
func RunAll(ctx context.Context, db *sql.DB) error {
	currentVersion, allMigrations, err := prepare(ctx, db)
	if err != nil {
		return err
	}
	_, err = MigrateUp(ctx, db, allMigrations, currentVersion)
	return err
}

// To migrates up or down to targetVersion and returns the version reached.
func To(ctx context.Context, db *sql.DB, targetVersion int) (int, error) {
	currentVersion, allMigrations, err := prepare(ctx, db)
	if err != nil {
		return 0, err
	}

	switch {
	case targetVersion > currentVersion:
		err = MigrateUpTo(ctx, db, allMigrations, currentVersion, targetVersion)
	case targetVersion < currentVersion:
		err = MigrateDownTo(ctx, db, allMigrations, currentVersion, targetVersion)
	}
	if err != nil {
		return 0, err
	}

	version, _, err := GetCurrentVersion(ctx, db)
	return version, err
}
