package driving

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// Scheduler manages the jobs that trigger pipeline runs.
type Scheduler interface {
	// Start begins firing due jobs.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops the tick loop and waits for in-flight fires to finish.
	Stop() error

	// Schedule registers a job and returns it.
	// A request without an ID gets a fresh one; an existing ID is replaced.
	Schedule(ctx context.Context, req domain.ScheduleRequest) (*domain.ScheduledJob, error)

	// ListJobs returns every registered job.
	ListJobs(ctx context.Context) ([]domain.JobSummary, error)

	// Unschedule removes a job so it never fires again.
	// Returns domain.ErrNotFound if no such job exists.
	Unschedule(ctx context.Context, jobID string) error
}
