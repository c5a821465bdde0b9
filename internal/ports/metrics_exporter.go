package ports

import (
	"context"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

// MetricsExporter exports experiment activity to an external observability system.
type MetricsExporter interface {
	// ExportObservation counts a recorded metric observation.
	ExportObservation(ctx context.Context, experiment *domain.Experiment, obs *domain.MetricObservation) error
	// ExportResult records confidence and lift of a computed result.
	ExportResult(ctx context.Context, experiment *domain.Experiment, result *domain.ExperimentResult) error
	// ExportTransition counts a lifecycle transition.
	ExportTransition(ctx context.Context, experiment *domain.Experiment, to domain.Status) error
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}
