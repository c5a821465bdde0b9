package ports

import (
	"context"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

// MetricStore is the append-only log of metric observations.
type MetricStore interface {
	// Record appends an observation and increments the variant's sample
	// count as one unit. Unknown variants yield domain.ErrNotFound.
	Record(ctx context.Context, obs *domain.MetricObservation) error
	// Aggregate returns count and mean; both are zero without observations.
	Aggregate(ctx context.Context, variantID string, metric domain.MetricType) (domain.Aggregate, error)
	// AllValues returns raw values ordered by recording time.
	AllValues(ctx context.Context, variantID string, metric domain.MetricType) ([]float64, error)
	// Snapshot is the experiment-wide form of Aggregate and AllValues: every
	// variant with its aggregate and values for metric, read from a single
	// consistent view.
	Snapshot(ctx context.Context, experimentID string, metric domain.MetricType) ([]domain.VariantAggregate, error)
}
