package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// RunFunc is what every job fires. The scheduler only reads the result
// to fill its fire history.
type RunFunc func(ctx context.Context) (*domain.PipelineReport, error)

// Scheduler owns the registry of jobs and fires the due ones.
// Fires of the same job may overlap; each runs in its own goroutine.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.JobStore
	run     RunFunc
	metrics driven.RunMetrics
	now     func() time.Time

	mu       sync.Mutex
	jobs     map[string]*domain.ScheduledJob
	declared map[string]bool
	loaded   bool
	running  bool
	stopCh   chan struct{}
	loopDone chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration. metrics may be nil.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.JobStore,
	run RunFunc,
	metrics driven.RunMetrics,
) *Scheduler {
	defaults := domain.DefaultSchedulerConfig()
	if config.Tick <= 0 {
		config.Tick = defaults.Tick
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaults.HistoryLimit
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &Scheduler{
		config:   config,
		store:    store,
		run:      run,
		metrics:  metrics,
		now:      time.Now,
		jobs:     make(map[string]*domain.ScheduledJob),
		declared: make(map[string]bool),
	}
}

// Load merges persisted jobs into the registry. Jobs already registered
// in memory win. Overdue jobs are moved to their next future fire time.
func (s *Scheduler) Load(ctx context.Context) error {
	persisted, err := s.store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for i := range persisted {
		job := persisted[i]
		if _, exists := s.jobs[job.ID]; exists {
			continue
		}
		if job.NextRun.IsZero() || job.NextRun.Before(now) {
			next, err := nextFire(job, now)
			if err != nil {
				logger.Warn("scheduler: dropping job %s: %v", job.ID, err)
				continue
			}
			job.NextRun = next
		}
		s.jobs[job.ID] = &job
	}
	s.loaded = true
	logger.Debug("scheduler: %d jobs registered", len(s.jobs))
	return nil
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	stopCh, loopDone := s.stopCh, s.loopDone
	s.mu.Unlock()
	defer close(loopDone)

	if err := s.Load(ctx); err != nil {
		logger.Error("scheduler: %v", err)
	}

	return s.loop(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for in-flight fires.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	loopDone := s.loopDone
	s.mu.Unlock()

	// Only the loop adds fires, so it must be gone before waiting on them.
	<-loopDone
	s.wg.Wait()
	return nil
}

// Schedule registers a job, replacing any job with the same ID.
func (s *Scheduler) Schedule(ctx context.Context, req domain.ScheduleRequest) (*domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := req.ID
	if id == "" {
		id = s.freshID(now)
	}

	job, err := req.Build(id)
	if err != nil {
		return nil, err
	}
	job.CreatedAt = now
	if job.NextRun, err = nextFire(job, now); err != nil {
		return nil, err
	}

	if err := s.store.SaveJob(ctx, &job); err != nil {
		return nil, fmt.Errorf("save job %s: %w", id, err)
	}
	_, replaced := s.jobs[id]
	s.jobs[id] = &job

	logger.Info("scheduler: job %s registered as %s, next run %s (replaced=%t)",
		id, job.Describe(), job.NextRun.Format(time.RFC3339), replaced)
	out := job
	return &out, nil
}

// freshID returns a time-derived ID not yet in the registry.
// Caller must hold s.mu.
func (s *Scheduler) freshID(now time.Time) string {
	n := now.UnixNano()
	for {
		id := domain.JobIDPrefix + strconv.FormatInt(n, 10)
		if _, taken := s.jobs[id]; !taken {
			return id
		}
		n++
	}
}

// ListJobs returns every registered job ordered by next fire time.
func (s *Scheduler) ListJobs(ctx context.Context) ([]domain.JobSummary, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	jobs := make([]domain.ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].NextRun.Equal(jobs[j].NextRun) {
			return jobs[i].NextRun.Before(jobs[j].NextRun)
		}
		return jobs[i].ID < jobs[j].ID
	})

	summaries := make([]domain.JobSummary, len(jobs))
	for i, job := range jobs {
		summaries[i] = job.Summary()
	}
	return summaries, nil
}

// Unschedule removes a job. A fire already in flight is not interrupted.
func (s *Scheduler) Unschedule(ctx context.Context, jobID string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	if err := s.store.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	delete(s.jobs, jobID)
	delete(s.declared, jobID)
	logger.Info("scheduler: job %s removed", jobID)
	return nil
}

// History returns the most recent fires of a job.
func (s *Scheduler) History(ctx context.Context, jobID string, limit int) ([]domain.FireResult, error) {
	if limit <= 0 {
		limit = s.config.HistoryLimit
	}
	return s.store.FireHistory(ctx, jobID, limit)
}

// ApplyDeclared registers jobs declared in configuration. Jobs declared by
// an earlier call but missing from reqs are removed. Requests without an ID
// get a stable one derived from their position.
func (s *Scheduler) ApplyDeclared(ctx context.Context, reqs []domain.ScheduleRequest) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	var errs []error
	next := make(map[string]bool, len(reqs))
	for i, req := range reqs {
		if req.ID == "" {
			req.ID = fmt.Sprintf("%sconfig_%d", domain.JobIDPrefix, i)
		}
		if s.unchanged(req) {
			next[req.ID] = true
			continue
		}
		if _, err := s.Schedule(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d]: %w", i, err))
			continue
		}
		next[req.ID] = true
	}

	s.mu.Lock()
	var stale []string
	for id := range s.declared {
		if !next[id] {
			stale = append(stale, id)
		}
	}
	s.declared = next
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.Unschedule(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// unchanged reports whether req describes the job already registered
// under its ID, so re-applying it would only reset the next fire time.
func (s *Scheduler) unchanged(req domain.ScheduleRequest) bool {
	want, err := req.Build(req.ID)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	have, ok := s.jobs[req.ID]
	return ok && have.Trigger == want.Trigger && have.Interval == want.Interval &&
		have.Hour == want.Hour && have.Minute == want.Minute
}

func (s *Scheduler) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// loop is the main scheduler loop.
func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) error {
	// Check for due jobs immediately on startup
	s.fireDue(ctx)

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

// fireDue advances every due job to its next fire time and fires it.
func (s *Scheduler) fireDue(ctx context.Context) {
	s.mu.Lock()
	now := s.now()
	var due []domain.ScheduledJob
	for _, job := range s.jobs {
		if job.NextRun.After(now) {
			continue
		}
		next, err := nextFire(*job, job.NextRun)
		if err == nil && !next.After(now) {
			// missed fires are coalesced into this one
			next, err = nextFire(*job, now)
		}
		if err != nil {
			logger.Error("scheduler: job %s: %v", job.ID, err)
			continue
		}
		job.LastRun = now
		job.NextRun = next
		due = append(due, *job)
	}
	s.mu.Unlock()

	for i := range due {
		s.fire(ctx, due[i])
	}
}

// fire runs one job in its own goroutine and records the outcome.
func (s *Scheduler) fire(ctx context.Context, job domain.ScheduledJob) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bg := context.WithoutCancel(ctx)

		logger.Info("scheduler: firing job %s", job.ID)
		result := &domain.FireResult{
			JobID:     job.ID,
			StartedAt: s.now(),
		}

		report, err := s.run(bg)
		result.EndedAt = s.now()
		switch {
		case err != nil:
			result.Error = err.Error()
		case report == nil || report.Summary == nil:
			result.Error = "run produced no summary"
		default:
			result.RecordsPersisted = report.Summary.RecordsPersisted
			result.Success = report.Summary.Status == domain.RunSuccess
			result.Error = report.Summary.ErrorMessage
		}
		job.LastError = result.Error
		s.metrics.ObserveFire(job.ID, result.Success)

		if !s.stillRegistered(&job) {
			logger.Debug("scheduler: job %s removed while running; result discarded", job.ID)
			return
		}

		if saveErr := s.store.SaveJob(bg, &job); saveErr != nil {
			logger.Warn("scheduler: failed to save job %s: %v", job.ID, saveErr)
		}
		if recordErr := s.store.RecordFire(bg, result); recordErr != nil {
			logger.Warn("scheduler: failed to record fire for %s: %v", job.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(bg, s.config.HistoryLimit); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// stillRegistered reports whether job is the live definition for its ID,
// copying the latest fire state into the registry when it is.
func (s *Scheduler) stillRegistered(job *domain.ScheduledJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.ID]
	if !ok || !current.CreatedAt.Equal(job.CreatedAt) {
		return false
	}
	current.LastError = job.LastError
	job.NextRun = current.NextRun
	job.LastRun = current.LastRun
	return true
}

// nextFire computes the first fire time of job strictly after from.
func nextFire(job domain.ScheduledJob, from time.Time) (time.Time, error) {
	switch job.Trigger {
	case domain.TriggerInterval:
		if job.Interval <= 0 {
			return time.Time{}, fmt.Errorf("%w: interval must be positive", domain.ErrInvalidInput)
		}
		return from.Add(job.Interval), nil
	case domain.TriggerCron:
		schedule, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", job.Minute, job.Hour))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return schedule.Next(from), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown trigger %q", domain.ErrInvalidInput, job.Trigger)
	}
}
