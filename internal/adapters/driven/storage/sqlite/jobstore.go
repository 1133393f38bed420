package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

// ListJobs returns all persisted jobs ordered by ID.
func (s *jobStore) ListJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, trigger_kind, interval_seconds, hour, minute, next_run, last_run, last_error, created_at
		FROM scheduled_jobs
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScheduledJob //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled jobs: %w", err)
	}
	return jobs, nil
}

// SaveJob persists a job's definition and state.
// Creates or replaces the job based on ID.
func (s *jobStore) SaveJob(ctx context.Context, job *domain.ScheduledJob) error {
	if job == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (id, trigger_kind, interval_seconds, hour, minute,
			next_run, last_run, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trigger_kind = excluded.trigger_kind,
			interval_seconds = excluded.interval_seconds,
			hour = excluded.hour,
			minute = excluded.minute,
			next_run = excluded.next_run,
			last_run = excluded.last_run,
			last_error = excluded.last_error,
			created_at = excluded.created_at
	`, job.ID, string(job.Trigger), int64(job.Interval/time.Second), job.Hour, job.Minute,
		formatNullableInstant(job.NextRun), formatNullableInstant(job.LastRun),
		nullString(job.LastError), formatInstant(job.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving scheduled job: %w", err)
	}
	return nil
}

// DeleteJob removes a job and its fire history.
func (s *jobStore) DeleteJob(ctx context.Context, jobID string) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM job_fires WHERE job_id = ?", jobID); err != nil {
			return fmt.Errorf("deleting job history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM scheduled_jobs WHERE id = ?", jobID); err != nil {
			return fmt.Errorf("deleting scheduled job: %w", err)
		}
		return nil
	})
}

// RecordFire logs one job firing.
func (s *jobStore) RecordFire(ctx context.Context, result *domain.FireResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO job_fires (job_id, started_at, ended_at, success, error, records_persisted)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.JobID, formatInstant(result.StartedAt), formatInstant(result.EndedAt),
		boolToInt(result.Success), nullString(result.Error), result.RecordsPersisted)
	if err != nil {
		return fmt.Errorf("recording job fire: %w", err)
	}
	return nil
}

// FireHistory returns recent results for a job, most recent first.
func (s *jobStore) FireHistory(ctx context.Context, jobID string, limit int) ([]domain.FireResult, error) {
	if limit <= 0 {
		limit = -1 // no LIMIT in SQLite
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT job_id, started_at, ended_at, success, error, records_persisted
		FROM job_fires
		WHERE job_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job history: %w", err)
	}
	defer rows.Close()

	var results []domain.FireResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.FireResult
		var startedAt, endedAt string
		var success int
		var errMsg sql.NullString
		if err := rows.Scan(&r.JobID, &startedAt, &endedAt, &success, &errMsg, &r.RecordsPersisted); err != nil {
			return nil, fmt.Errorf("scanning job fire: %w", err)
		}
		r.StartedAt = parseInstant(startedAt)
		r.EndedAt = parseInstant(endedAt)
		r.Success = success == 1
		r.Error = errMsg.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job history: %w", err)
	}
	return results, nil
}

// PruneHistory keeps the most recent 'keep' results per job.
func (s *jobStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM job_fires
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY job_id ORDER BY started_at DESC, id DESC) AS rn
				FROM job_fires
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning job history: %w", err)
	}
	return nil
}

func scanJob(rows *sql.Rows) (*domain.ScheduledJob, error) {
	var job domain.ScheduledJob
	var trigger, createdAt string
	var intervalSeconds int64
	var nextRun, lastRun, lastError sql.NullString

	if err := rows.Scan(&job.ID, &trigger, &intervalSeconds, &job.Hour, &job.Minute,
		&nextRun, &lastRun, &lastError, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning scheduled job: %w", err)
	}

	job.Trigger = domain.TriggerKind(trigger)
	job.Interval = time.Duration(intervalSeconds) * time.Second
	job.NextRun = parseNullableInstant(nextRun)
	job.LastRun = parseNullableInstant(lastRun)
	job.LastError = lastError.String
	job.CreatedAt = parseInstant(createdAt)
	return &job, nil
}
