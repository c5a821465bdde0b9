package ports

import (
	"context"
	"time"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

type ExperimentRepository interface {
	Create(ctx context.Context, experiment *domain.Experiment) error
	// GetByID returns domain.ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*domain.Experiment, error)
	List(ctx context.Context, opts ListExperimentsOptions) ([]*domain.Experiment, error)
	// UpdateStatus moves an experiment to status, stamping started_at when
	// it starts running and completed_at when it completes.
	UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error
	// Delete removes the experiment with its variants, observations and
	// snapshots. Returns domain.ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id string) error
}

type ListExperimentsOptions struct {
	Status *domain.Status
	Limit  int
}
