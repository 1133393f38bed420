package driving

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// ActService manages stored acts outside the ingest path.
type ActService interface {
	// Create stores a single act.
	Create(ctx context.Context, record domain.ActRecord) (*domain.StoredAct, error)

	// Get retrieves a live act.
	Get(ctx context.Context, id string) (*domain.StoredAct, error)

	// List returns live acts matching the filter.
	List(ctx context.Context, filter domain.ActFilter) ([]domain.StoredAct, error)

	// Update applies the non-nil fields of the update.
	Update(ctx context.Context, id string, update domain.ActUpdate) (*domain.StoredAct, error)

	// Delete soft-deletes an act.
	Delete(ctx context.Context, id string) error

	// Dashboard aggregates live acts.
	Dashboard(ctx context.Context, filter domain.ActFilter) (*domain.Dashboard, error)
}
