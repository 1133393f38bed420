package driven

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// IngestionGateway is the boundary the pipeline hands normalised batches to.
type IngestionGateway interface {
	// Authenticate obtains whatever credential SubmitBatch needs.
	// Failures wrap domain.ErrUnauthorized.
	Authenticate(ctx context.Context) error

	// SubmitBatch hands the batch to the Ingestor.
	// A rejected batch is reported through SubmitResult, not as an error;
	// the error is reserved for transport failures.
	SubmitBatch(ctx context.Context, batch []domain.ActRecord) (*domain.SubmitResult, error)
}
