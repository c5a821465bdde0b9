package ports_test

import (
	"testing"

	"github.com/emiliopalmerini/socialab/internal/adapters/otel"
	"github.com/emiliopalmerini/socialab/internal/adapters/turso"
	"github.com/emiliopalmerini/socialab/internal/ports"
)

// Compile-time interface conformance checks.
// These verify that concrete adapters properly implement their port interfaces.

func TestExperimentRepositoryConformance(t *testing.T) {
	var _ ports.ExperimentRepository = (*turso.ExperimentRepository)(nil)
}

func TestVariantRepositoryConformance(t *testing.T) {
	var _ ports.VariantRepository = (*turso.VariantRepository)(nil)
}

func TestMetricStoreConformance(t *testing.T) {
	var _ ports.MetricStore = (*turso.MetricStore)(nil)
}

func TestResultSnapshotRepositoryConformance(t *testing.T) {
	var _ ports.ResultSnapshotRepository = (*turso.ResultSnapshotRepository)(nil)
}

func TestMetricsExporterConformance(t *testing.T) {
	var _ ports.MetricsExporter = (*otel.Exporter)(nil)
	var _ ports.MetricsExporter = (*otel.NoOpExporter)(nil)
}
