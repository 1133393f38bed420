package gateway

import (
	"context"
	"net/http"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
)

// Ensure Local implements the interface.
var _ driven.IngestionGateway = (*Local)(nil)

// Local submits batches to an in-process Ingestor.
type Local struct {
	ingestor driving.Ingestor
}

// NewLocal creates a gateway around ingestor.
func NewLocal(ingestor driving.Ingestor) *Local {
	return &Local{ingestor: ingestor}
}

// Authenticate always succeeds; there is no boundary to cross.
func (g *Local) Authenticate(_ context.Context) error {
	return nil
}

// SubmitBatch ingests the batch. The Ingestor never fails at the call
// level, so the result is always accepted.
func (g *Local) SubmitBatch(ctx context.Context, batch []domain.ActRecord) (*domain.SubmitResult, error) {
	summary := g.ingestor.Ingest(ctx, batch)
	return &domain.SubmitResult{StatusCode: http.StatusOK, Summary: &summary}, nil
}
