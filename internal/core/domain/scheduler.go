package domain

import (
	"fmt"
	"strings"
	"time"
)

// TriggerKind selects how a scheduled job computes its fire times.
type TriggerKind string

// Supported trigger kinds.
const (
	// TriggerInterval fires every fixed duration.
	TriggerInterval TriggerKind = "interval"

	// TriggerCron fires daily at a wall-clock hour and minute.
	TriggerCron TriggerKind = "cron"
)

// IsValid returns true if the trigger kind is recognised.
func (k TriggerKind) IsValid() bool {
	return k == TriggerInterval || k == TriggerCron
}

// JobIDPrefix prefixes generated job identifiers.
const JobIDPrefix = "harvest_job_"

// MaxInterval is the longest interval trigger accepted.
const MaxInterval = 366 * 24 * time.Hour

// ScheduledJob is a trigger bound to "run the pipeline once".
type ScheduledJob struct {
	// ID is the unique identifier for the job.
	ID string

	// Trigger is the trigger kind.
	Trigger TriggerKind

	// Interval is the period of an interval trigger.
	Interval time.Duration

	// Hour and Minute are the wall-clock fire time of a cron trigger.
	Hour   int
	Minute int

	// NextRun is when the job fires next.
	NextRun time.Time

	// LastRun is when the job last fired.
	LastRun time.Time

	// LastError contains the last run's error message, if any.
	LastError string

	// CreatedAt is when the job was registered.
	CreatedAt time.Time
}

// Describe returns a human-readable trigger description.
func (j ScheduledJob) Describe() string {
	switch j.Trigger {
	case TriggerInterval:
		total := int64(j.Interval / time.Second)
		return fmt.Sprintf("interval[%d:%02d:%02d]", total/3600, (total%3600)/60, total%60)
	case TriggerCron:
		return fmt.Sprintf("cron[hour='%d', minute='%d']", j.Hour, j.Minute)
	default:
		return unknownDescription
	}
}

// Summary returns the listing view of the job.
func (j ScheduledJob) Summary() JobSummary {
	return JobSummary{
		ID:      j.ID,
		NextRun: j.NextRun,
		Trigger: j.Describe(),
	}
}

// JobSummary is the listing view of a scheduled job.
type JobSummary struct {
	ID      string
	NextRun time.Time
	Trigger string
}

// ScheduleRequest asks for a new job.
// Hours and Minutes are the interval fields for interval triggers and the
// wall-clock hour and minute for cron triggers.
type ScheduleRequest struct {
	// ID is optional. When set, a job with the same ID is replaced.
	ID string

	Trigger string
	Hours   *int
	Minutes *int
}

// Build validates the request and returns the job it describes.
// NextRun is left for the scheduler to compute.
func (r ScheduleRequest) Build(id string) (ScheduledJob, error) {
	kind := TriggerKind(strings.ToLower(strings.TrimSpace(r.Trigger)))
	job := ScheduledJob{ID: id, Trigger: kind}

	switch kind {
	case TriggerInterval:
		hours, minutes := deref(r.Hours), deref(r.Minutes)
		if hours < 0 || minutes < 0 {
			return ScheduledJob{}, invalid("hours and minutes must not be negative")
		}
		if hours == 0 && minutes == 0 {
			return ScheduledJob{}, invalid("interval trigger needs hours or minutes")
		}
		// Bounded before multiplying so the duration cannot wrap.
		if hours > int(MaxInterval/time.Hour) || minutes > int(MaxInterval/time.Minute) {
			return ScheduledJob{}, invalid("interval must not exceed %s", MaxInterval)
		}
		job.Interval = time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
		if job.Interval > MaxInterval {
			return ScheduledJob{}, invalid("interval must not exceed %s", MaxInterval)
		}
	case TriggerCron:
		if r.Hours == nil || r.Minutes == nil {
			return ScheduledJob{}, invalid("cron trigger needs both hours and minutes")
		}
		if *r.Hours < 0 || *r.Hours > 23 {
			return ScheduledJob{}, invalid("hour must be between 0 and 23")
		}
		if *r.Minutes < 0 || *r.Minutes > 59 {
			return ScheduledJob{}, invalid("minute must be between 0 and 59")
		}
		job.Hour, job.Minute = *r.Hours, *r.Minutes
	default:
		return ScheduledJob{}, invalid("trigger must be 'interval' or 'cron', got %q", r.Trigger)
	}
	return job, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// FireResult represents the outcome of one job firing.
type FireResult struct {
	// JobID identifies which job fired.
	JobID string

	// StartedAt is when the run started.
	StartedAt time.Time

	// EndedAt is when the run completed.
	EndedAt time.Time

	// Success indicates whether the run completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// RecordsPersisted is the Ingestor's count for the run, when known.
	RecordsPersisted int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Tick is how often due jobs are checked.
	Tick time.Duration

	// HistoryLimit is how many fire results are kept per job.
	HistoryLimit int
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Tick:         time.Second,
		HistoryLimit: 100,
	}
}

const unknownDescription = "Unknown"
