package turso_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/emiliopalmerini/socialab/internal/adapters/turso"
	"github.com/emiliopalmerini/socialab/internal/domain"
	"github.com/emiliopalmerini/socialab/internal/migrate"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := migrate.RunAll(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedExperiment(t *testing.T, repos *turso.Repositories, name string, createdAt time.Time) *domain.Experiment {
	t.Helper()

	exp := &domain.Experiment{
		ID:                  uuid.NewString(),
		Name:                name,
		Platform:            "instagram",
		PrimaryMetric:       domain.MetricEngagementRate,
		Status:              domain.StatusDraft,
		MinSampleSize:       domain.DefaultMinSampleSize,
		ConfidenceThreshold: domain.DefaultConfidenceThreshold,
		CreatedAt:           createdAt,
	}
	if err := repos.Experiments.Create(context.Background(), exp); err != nil {
		t.Fatalf("Create experiment failed: %v", err)
	}
	return exp
}

func seedVariant(t *testing.T, repos *turso.Repositories, experimentID, name string, control bool) *domain.Variant {
	t.Helper()

	v := &domain.Variant{
		ID:           uuid.NewString(),
		ExperimentID: experimentID,
		Name:         name,
		Type:         domain.VariantCaption,
		Content:      name + " content",
		IsControl:    control,
		CreatedAt:    baseTime,
	}
	if err := repos.Variants.Create(context.Background(), v); err != nil {
		t.Fatalf("Create variant failed: %v", err)
	}
	return v
}

func record(t *testing.T, repos *turso.Repositories, variantID string, metric domain.MetricType, value float64, at time.Time) {
	t.Helper()

	obs := &domain.MetricObservation{VariantID: variantID, Metric: metric, Value: value, RecordedAt: at}
	if err := repos.Metrics.Record(context.Background(), obs); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
}
