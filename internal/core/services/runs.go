package services

import (
	"context"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
)

// Ensure RunService implements the interface.
var _ driving.RunAuditor = (*RunService)(nil)

// RunService reads and appends the run history.
type RunService struct {
	runs driven.RunLogStore
	now  func() time.Time
}

// NewRunService creates a run auditor.
func NewRunService(runs driven.RunLogStore) *RunService {
	return &RunService{runs: runs, now: time.Now}
}

// Record appends an entry for a run that ended before ingestion, stamped
// with the run's start like the entries the Ingestor writes.
func (s *RunService) Record(ctx context.Context, executedAt time.Time, summary domain.RunSummary) error {
	if !summary.Status.IsValid() {
		return domain.ErrInvalidInput
	}
	if executedAt.IsZero() {
		executedAt = s.now()
	}
	return recordRun(ctx, s.runs, executedAt, summary)
}

// ListRuns returns one page of the history.
func (s *RunService) ListRuns(ctx context.Context, query domain.RunQuery) (*domain.RunPage, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	page, err := s.runs.List(ctx, query)
	if err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []domain.RunLogEntry{}
	}
	return page, nil
}
