package driven

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// Extractor pulls raw act rows from the external registry.
type Extractor interface {
	// Extract returns every rendered row of every result page.
	// Fatal failures wrap domain.ErrExtraction.
	Extract(ctx context.Context) ([]domain.RawActRow, error)
}

// ActNormaliser maps a raw row to a canonical record.
type ActNormaliser interface {
	// Normalise is a pure function. Failures wrap domain.ErrParse.
	Normalise(row domain.RawActRow) (domain.ActRecord, error)
}
