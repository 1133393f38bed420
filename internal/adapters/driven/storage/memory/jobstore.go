package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]domain.ScheduledJob
	history map[string][]domain.FireResult
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:    make(map[string]domain.ScheduledJob),
		history: make(map[string][]domain.FireResult),
	}
}

// ListJobs returns all jobs ordered by ID.
func (s *JobStore) ListJobs(_ context.Context) ([]domain.ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]domain.ScheduledJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

// SaveJob creates or replaces a job.
func (s *JobStore) SaveJob(_ context.Context, job *domain.ScheduledJob) error {
	if job == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// DeleteJob removes a job and its history.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	delete(s.history, jobID)
	return nil
}

// RecordFire logs one job firing.
func (s *JobStore) RecordFire(_ context.Context, result *domain.FireResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[result.JobID] = append(s.history[result.JobID], *result)
	return nil
}

// FireHistory returns recent results for a job, most recent first.
func (s *JobStore) FireHistory(_ context.Context, jobID string, limit int) ([]domain.FireResult, error) {
	s.mu.RLock()
	results := append([]domain.FireResult(nil), s.history[jobID]...)
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PruneHistory keeps the most recent 'keep' results per job.
func (s *JobStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, results := range s.history {
		if len(results) <= keep {
			continue
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].StartedAt.Before(results[j].StartedAt)
		})
		s.history[id] = append([]domain.FireResult(nil), results[len(results)-keep:]...)
	}
	return nil
}
