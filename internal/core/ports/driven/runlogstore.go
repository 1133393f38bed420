package driven

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// RunLogStore is the append-only audit log of pipeline runs.
type RunLogStore interface {
	// Record appends one entry. Entries are never modified afterwards.
	// Implementations write outside any ingest transaction.
	Record(ctx context.Context, entry domain.RunLogEntry) error

	// List returns one page of entries, newest first.
	// The query has already been validated.
	List(ctx context.Context, query domain.RunQuery) (*domain.RunPage, error)
}
