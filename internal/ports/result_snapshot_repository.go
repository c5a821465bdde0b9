package ports

import (
	"context"
	"time"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

// ResultSnapshot is a stored copy of a computed experiment result.
type ResultSnapshot struct {
	ID           int64
	ExperimentID string
	TakenAt      time.Time
	Result       domain.ExperimentResult
}

type ResultSnapshotRepository interface {
	// Complete marks the result's experiment completed at completedAt and
	// stores the result as its snapshot, as one unit: either both happen or
	// neither does. Unknown experiments yield domain.ErrNotFound.
	Complete(ctx context.Context, result *domain.ExperimentResult, completedAt time.Time) error
	// Latest returns domain.ErrNotFound when the experiment has no snapshot.
	Latest(ctx context.Context, experimentID string) (*ResultSnapshot, error)
}
