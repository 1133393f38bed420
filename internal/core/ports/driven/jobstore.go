package driven

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// JobStore persists scheduled jobs so they survive a restart.
// It stores job definitions and their fire history.
type JobStore interface {
	// ListJobs returns all persisted jobs.
	ListJobs(ctx context.Context) ([]domain.ScheduledJob, error)

	// SaveJob persists a job's state.
	// Creates or replaces the job based on ID.
	SaveJob(ctx context.Context, job *domain.ScheduledJob) error

	// DeleteJob removes a job and its history.
	DeleteJob(ctx context.Context, jobID string) error

	// RecordFire logs one job firing.
	RecordFire(ctx context.Context, result *domain.FireResult) error

	// FireHistory returns recent results for a job.
	// Results are ordered by start time descending (most recent first).
	FireHistory(ctx context.Context, jobID string, limit int) ([]domain.FireResult, error)

	// PruneHistory keeps the most recent 'keep' results per job.
	PruneHistory(ctx context.Context, keep int) error
}
