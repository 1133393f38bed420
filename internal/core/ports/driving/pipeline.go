package driving

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// Pipeline runs one scrape, normalise and load cycle.
type Pipeline interface {
	// Run executes the stages strictly in order and reports the outcome.
	// Extraction, normalisation and authentication failures are returned
	// as errors; submission failures are captured in the report.
	Run(ctx context.Context) (*domain.PipelineReport, error)
}
