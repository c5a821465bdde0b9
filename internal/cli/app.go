package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/socialab/internal/adapters/otel"
	"github.com/emiliopalmerini/socialab/internal/adapters/turso"
	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/experiment"
	"github.com/emiliopalmerini/socialab/internal/infrastructure/config"
	"github.com/emiliopalmerini/socialab/internal/infrastructure/database"
	"github.com/emiliopalmerini/socialab/internal/logging"
	"github.com/emiliopalmerini/socialab/internal/migrate"
	"github.com/emiliopalmerini/socialab/internal/ports"
)

// testDBOverride replaces the configured database in tests.
var testDBOverride *sql.DB

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config   *config.Config
	Logger   zerolog.Logger
	DB       *sql.DB
	Repos    *turso.Repositories
	Exporter ports.MetricsExporter
	Service  *experiment.Service

	ownsDB bool
}

// NewAppContext creates an AppContext with all dependencies initialized.
// Pending migrations are applied before it is returned.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	mode, err := domain.ParseConfidenceMode(cfg.Stats.ConfidenceMode)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log)
	ctx = logger.WithContext(ctx)

	app := &AppContext{Config: cfg, Logger: logger}

	if testDBOverride != nil {
		app.DB = testDBOverride
	} else {
		client, err := database.New(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = client.DB
		app.ownsDB = true
	}

	if err := migrate.RunAll(ctx, app.DB); err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app.Exporter = newExporter(ctx, cfg.OTel, logger)
	app.Repos = turso.NewRepositories(app.DB)
	app.Service = experiment.NewService(experiment.Deps{
		Experiments: app.Repos.Experiments,
		Variants:    app.Repos.Variants,
		Metrics:     app.Repos.Metrics,
		Snapshots:   app.Repos.Snapshots,
		Exporter:    app.Exporter,
	},
		experiment.WithLogger(logger),
		experiment.WithAnalyzer(domain.NewAnalyzer(mode)),
	)

	return app, nil
}

// newExporter falls back to a no-op exporter when OTEL is disabled or
// cannot be initialized.
func newExporter(ctx context.Context, cfg config.OTel, logger zerolog.Logger) ports.MetricsExporter {
	if !cfg.Enabled {
		return otel.NewNoOpExporter()
	}
	exp, err := otel.NewExporter(ctx, otel.ConfigFrom(cfg))
	if err != nil {
		logger.Warn().Err(err).Msg("metrics export disabled")
		return otel.NewNoOpExporter()
	}
	return exp
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close(ctx context.Context) error {
	if a.Exporter != nil {
		if err := a.Exporter.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to flush metrics")
		}
	}
	if a.DB != nil && a.ownsDB {
		return a.DB.Close()
	}
	return nil
}

// withApp runs fn with a fresh AppContext and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *AppContext) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(ctx) }()

	return fn(app.Logger.WithContext(ctx), app)
}
