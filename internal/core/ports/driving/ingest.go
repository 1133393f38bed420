package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// Ingestor loads canonical records with natural-key deduplication.
type Ingestor interface {
	// Ingest persists the batch in one transaction and writes exactly one
	// run log entry. It never returns an error; failures are reported
	// through the summary status.
	Ingest(ctx context.Context, batch []domain.ActRecord) domain.RunSummary
}

// RunAuditor is the query and write side of the run history.
type RunAuditor interface {
	// Record appends an entry for a run that never reached the Ingestor.
	// executedAt is when the run started; zero means now.
	Record(ctx context.Context, executedAt time.Time, summary domain.RunSummary) error

	// ListRuns returns one page of history, newest first.
	// Returns domain.ErrInvalidInput for an out-of-range query.
	ListRuns(ctx context.Context, query domain.RunQuery) (*domain.RunPage, error)
}
