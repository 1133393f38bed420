package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

func (s *jobStore) ListJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, trigger_kind, interval_seconds, hour, minute, next_run, last_run, last_error, created_at
		FROM scheduled_jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScheduledJob
	for rows.Next() {
		var job domain.ScheduledJob
		var trigger string
		var intervalSeconds int64
		var nextRun, lastRun sql.NullTime
		var lastError sql.NullString
		if err := rows.Scan(&job.ID, &trigger, &intervalSeconds, &job.Hour, &job.Minute,
			&nextRun, &lastRun, &lastError, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning scheduled job: %w", err)
		}
		job.Trigger = domain.TriggerKind(trigger)
		job.Interval = time.Duration(intervalSeconds) * time.Second
		if nextRun.Valid {
			job.NextRun = nextRun.Time.UTC()
		}
		if lastRun.Valid {
			job.LastRun = lastRun.Time.UTC()
		}
		job.LastError = lastError.String
		job.CreatedAt = job.CreatedAt.UTC()
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled jobs: %w", err)
	}
	return jobs, nil
}

func (s *jobStore) SaveJob(ctx context.Context, job *domain.ScheduledJob) error {
	if job == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (id, trigger_kind, interval_seconds, hour, minute, next_run, last_run, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			trigger_kind = EXCLUDED.trigger_kind,
			interval_seconds = EXCLUDED.interval_seconds,
			hour = EXCLUDED.hour,
			minute = EXCLUDED.minute,
			next_run = EXCLUDED.next_run,
			last_run = EXCLUDED.last_run,
			last_error = EXCLUDED.last_error,
			created_at = EXCLUDED.created_at`,
		job.ID, string(job.Trigger), int64(job.Interval/time.Second), job.Hour, job.Minute,
		nullTime(job.NextRun), nullTime(job.LastRun), nullString(job.LastError), job.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving scheduled job: %w", err)
	}
	return nil
}

func (s *jobStore) DeleteJob(ctx context.Context, jobID string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting scheduled job: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM job_fires WHERE job_id = $1", jobID); err != nil {
		return fmt.Errorf("deleting job history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM scheduled_jobs WHERE id = $1", jobID); err != nil {
		return fmt.Errorf("deleting scheduled job: %w", err)
	}
	return tx.Commit()
}

func (s *jobStore) RecordFire(ctx context.Context, result *domain.FireResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO job_fires (job_id, started_at, ended_at, success, error, records_persisted)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.JobID, result.StartedAt.UTC(), result.EndedAt.UTC(), result.Success,
		nullString(result.Error), result.RecordsPersisted)
	if err != nil {
		return fmt.Errorf("recording job fire: %w", err)
	}
	return nil
}

// FireHistory returns recent results, most recent first. A non-positive
// limit returns everything.
func (s *jobStore) FireHistory(ctx context.Context, jobID string, limit int) ([]domain.FireResult, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT job_id, started_at, ended_at, success, error, records_persisted
		FROM job_fires WHERE job_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2`, jobID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("querying job history: %w", err)
	}
	defer rows.Close()

	var results []domain.FireResult
	for rows.Next() {
		var r domain.FireResult
		var errMsg sql.NullString
		if err := rows.Scan(&r.JobID, &r.StartedAt, &r.EndedAt, &r.Success, &errMsg, &r.RecordsPersisted); err != nil {
			return nil, fmt.Errorf("scanning job fire: %w", err)
		}
		r.StartedAt, r.EndedAt = r.StartedAt.UTC(), r.EndedAt.UTC()
		r.Error = errMsg.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job history: %w", err)
	}
	return results, nil
}

func (s *jobStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM job_fires WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY job_id ORDER BY started_at DESC, id DESC) AS rn
				FROM job_fires
			) ranked WHERE rn > $1
		)`, keep)
	if err != nil {
		return fmt.Errorf("pruning job history: %w", err)
	}
	return nil
}
