package cli

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/emiliopalmerini/socialab/internal/migrate"
)

// testDB creates a file-backed SQLite database with all migrations applied
// and installs it as the CLI database for the duration of the test.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate.RunAll(context.Background(), db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Setenv("SOCIALAB_CONFIG", "")
	t.Setenv("SOCIALAB_OTEL_ENABLED", "false")
	t.Setenv("SOCIALAB_LOG_LEVEL", "error")

	testDBOverride = db
	t.Cleanup(func() {
		testDBOverride = nil
		_ = db.Close()
	})
	return db
}

// run executes the CLI with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("socialab %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// idFrom extracts the value of the "ID: " line printed by create commands.
func idFrom(t *testing.T, out string) string {
	t.Helper()

	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(line, "ID: "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no ID in output:\n%s", out)
	return ""
}
