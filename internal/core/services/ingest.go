package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService loads batches of acts into the act store.
type IngestService struct {
	acts      driven.ActStore
	runs      driven.RunLogStore
	metrics   driven.RunMetrics
	chunkSize int
	now       func() time.Time
}

// NewIngestService creates an ingestor. A chunkSize below one falls back
// to domain.DefaultChunkSize. metrics may be nil.
func NewIngestService(
	acts driven.ActStore,
	runs driven.RunLogStore,
	metrics driven.RunMetrics,
	chunkSize int,
) *IngestService {
	if chunkSize < 1 {
		chunkSize = domain.DefaultChunkSize
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &IngestService{
		acts:      acts,
		runs:      runs,
		metrics:   metrics,
		chunkSize: chunkSize,
		now:       time.Now,
	}
}

// Ingest persists the batch and records the attempt in the run log.
//
// All chunks share one transaction. records_persisted is only non-zero
// once that transaction has committed.
func (s *IngestService) Ingest(ctx context.Context, batch []domain.ActRecord) domain.RunSummary {
	started := s.now()

	persisted, err := s.load(ctx, batch, started)

	summary := domain.RunSummary{
		Status:           domain.RunSuccess,
		RecordsPersisted: persisted,
		DurationSeconds:  s.now().Sub(started).Seconds(),
	}
	if err != nil {
		summary.Status = domain.RunError
		summary.RecordsPersisted = 0
		summary.ErrorMessage = err.Error()
		logger.Warn("ingest: batch of %d failed: %v", len(batch), err)
	} else {
		logger.Info("ingest: %d of %d records persisted", persisted, len(batch))
	}

	s.audit(ctx, started, summary)
	s.metrics.ObserveRun(summary)
	return summary
}

func (s *IngestService) load(ctx context.Context, batch []domain.ActRecord, at time.Time) (int, error) {
	acts := make([]domain.StoredAct, 0, len(batch))
	for i, record := range batch {
		if err := record.ValidateLoadable(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		record.PublicationDate = domain.DateOf(record.PublicationDate)
		acts = append(acts, domain.StoredAct{
			ActRecord: record,
			ID:        uuid.NewString(),
			CreatedAt: at,
		})
	}

	tx, err := s.acts.BeginIngest(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}

	inserted := 0
	for i, part := range chunk(acts, s.chunkSize) {
		n, err := tx.InsertIgnoringConflicts(ctx, part)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Warn("ingest: rollback failed: %v", rbErr)
			}
			return 0, fmt.Errorf("%w: chunk %d: %v", domain.ErrPersistence, i, err)
		}
		logger.Debug("ingest: chunk %d inserted %d of %d", i, n, len(part))
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return inserted, nil
}

// audit writes the run log entry outside the ingest transaction.
// A failed audit write is logged, never surfaced.
func (s *IngestService) audit(ctx context.Context, executedAt time.Time, summary domain.RunSummary) {
	if err := recordRun(context.WithoutCancel(ctx), s.runs, executedAt, summary); err != nil {
		logger.Error("ingest: failed to record run: %v", err)
	}
}

// recordRun turns a summary into a fresh run log entry and appends it.
func recordRun(ctx context.Context, runs driven.RunLogStore, executedAt time.Time, summary domain.RunSummary) error {
	entry := domain.RunLogEntry{
		ID:               uuid.NewString(),
		ExecutedAt:       executedAt.UTC(),
		RecordsPersisted: summary.RecordsPersisted,
		Status:           summary.Status,
		ErrorMessage:     summary.ErrorMessage,
		DurationSeconds:  summary.DurationSeconds,
	}
	return runs.Record(ctx, entry)
}
