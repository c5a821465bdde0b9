package otel

import (
	"context"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) ExportObservation(ctx context.Context, exp *domain.Experiment, obs *domain.MetricObservation) error {
	return nil
}

func (e *NoOpExporter) ExportResult(ctx context.Context, exp *domain.Experiment, result *domain.ExperimentResult) error {
	return nil
}

func (e *NoOpExporter) ExportTransition(ctx context.Context, exp *domain.Experiment, to domain.Status) error {
	return nil
}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
