package domain

import (
	"strings"
	"time"
)

// RunStatus is the outcome of a pipeline run.
type RunStatus string

// Run outcomes.
const (
	RunSuccess RunStatus = "SUCCESS"
	RunError   RunStatus = "ERROR"
)

// IsValid returns true if the status is recognised.
func (s RunStatus) IsValid() bool {
	return s == RunSuccess || s == RunError
}

// ParseRunStatus accepts a status in any letter case.
func ParseRunStatus(s string) (RunStatus, error) {
	status := RunStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", invalid("status must be SUCCESS or ERROR, got %q", s)
	}
	return status, nil
}

// Ingest chunking and audit paging limits.
const (
	DefaultChunkSize = 500
	DefaultPageSize  = 20
	MaxPageSize      = 100
)

// RunSummary is what the Ingestor reports for one batch.
type RunSummary struct {
	Status           RunStatus
	RecordsPersisted int
	DurationSeconds  float64
	ErrorMessage     string
}

// RunLogEntry is the immutable audit record of one pipeline run.
type RunLogEntry struct {
	ID               string
	ExecutedAt       time.Time
	RecordsPersisted int
	Status           RunStatus
	ErrorMessage     string
	DurationSeconds  float64
}

// Summary returns the entry's outcome as a RunSummary.
func (e RunLogEntry) Summary() RunSummary {
	return RunSummary{
		Status:           e.Status,
		RecordsPersisted: e.RecordsPersisted,
		DurationSeconds:  e.DurationSeconds,
		ErrorMessage:     e.ErrorMessage,
	}
}

// RunQuery selects a page of run log entries, newest first.
// From and To are calendar days; both ends cover the full day.
type RunQuery struct {
	Page   int
	Size   int
	Status RunStatus
	From   *time.Time
	To     *time.Time
}

// Validate checks paging bounds and filters.
func (q RunQuery) Validate() error {
	if q.Page < 1 {
		return invalid("page must be >= 1")
	}
	if q.Size < 1 || q.Size > MaxPageSize {
		return invalid("size must be between 1 and %d", MaxPageSize)
	}
	if q.Status != "" && !q.Status.IsValid() {
		return invalid("unknown status %q", q.Status)
	}
	if q.From != nil && q.To != nil && DateOf(*q.From).After(DateOf(*q.To)) {
		return invalid("date_from is after date_to")
	}
	return nil
}

// Offset is the number of entries skipped before this page.
func (q RunQuery) Offset() int {
	return (q.Page - 1) * q.Size
}

// Window returns the inclusive start and exclusive end of the date filter.
// A nil bound is left open.
func (q RunQuery) Window() (start, end *time.Time) {
	if q.From != nil {
		s := DateOf(*q.From)
		start = &s
	}
	if q.To != nil {
		e := DateOf(*q.To).AddDate(0, 0, 1)
		end = &e
	}
	return start, end
}

// RunPage is one page of run history.
type RunPage struct {
	Page  int
	Size  int
	Total int
	Items []RunLogEntry
}

// SubmitResult is the ingestion boundary's answer to a batch submission.
type SubmitResult struct {
	// StatusCode is the boundary's status (HTTP status for the remote gateway).
	StatusCode int

	// Summary is set when the boundary accepted the batch.
	Summary *RunSummary

	// Body carries the raw error payload when the batch was rejected.
	Body string
}

// Accepted reports whether the boundary processed the batch.
func (r SubmitResult) Accepted() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300 && r.Summary != nil
}

// PipelineReport is returned by one pipeline invocation.
type PipelineReport struct {
	// ExtractedRows is how many rows the extractor returned.
	ExtractedRows int

	// SubmitStatus is the ingestion boundary's status code.
	SubmitStatus int

	// SubmitError holds the boundary's error payload on rejection.
	SubmitError string

	// Summary is the Ingestor's summary when the batch was accepted.
	Summary *RunSummary

	// Duration is the wall time of the whole run.
	Duration time.Duration
}
