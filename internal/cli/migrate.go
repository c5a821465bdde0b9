package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/socialab/internal/infrastructure/config"
	"github.com/emiliopalmerini/socialab/internal/infrastructure/database"
	"github.com/emiliopalmerini/socialab/internal/logging"
	"github.com/emiliopalmerini/socialab/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [version]",
		Short: "Run database migrations",
		Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  socialab migrate      # Run all pending migrations
  socialab migrate 1    # Migrate to version 1
  socialab migrate 0    # Rollback all migrations`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	target := -1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version number: %s", args[0])
		}
		target = v
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.New(cfg.Log).WithContext(ctx)

	db := testDBOverride
	if db == nil {
		client, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() { _ = client.Close() }()
		db = client.DB
	}

	out := cmd.OutOrStdout()
	if target < 0 {
		if err := migrate.EnsureMigrationsTable(ctx, db); err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}
		before, _, err := migrate.GetCurrentVersion(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to get current version: %w", err)
		}
		if err := migrate.RunAll(ctx, db); err != nil {
			return err
		}
		after, _, err := migrate.GetCurrentVersion(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to get current version: %w", err)
		}
		if after == before {
			fmt.Fprintf(out, "No migrations to run (version %d)\n", after)
		} else {
			fmt.Fprintf(out, "Migrated from version %d to %d\n", before, after)
		}
		return nil
	}

	version, err := migrate.To(ctx, db, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated to version %d\n", version)
	return nil
}
