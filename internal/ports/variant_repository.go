package ports

import (
	"context"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

type VariantRepository interface {
	// Create assigns the creation sequence number. A second control variant
	// in the same experiment is rejected with domain.ErrMultipleControls.
	Create(ctx context.Context, variant *domain.Variant) error
	GetByID(ctx context.Context, id string) (*domain.Variant, error)
	// ListByExperimentID returns variants in creation order.
	ListByExperimentID(ctx context.Context, experimentID string) ([]*domain.Variant, error)
}
