// Package apitypes holds the JSON shapes exchanged over the HTTP API.
// The API server and the ingestion client both use them, so a batch the
// client encodes is exactly what the server decodes.
package apitypes

import (
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// Act is a canonical act on the wire. Dates are YYYY-MM-DD.
type Act struct {
	ActType         string `json:"act_type"`
	ActNumber       string `json:"act_number"`
	IssuingUnit     string `json:"issuing_unit"`
	PublicationDate string `json:"publication_date"`
	SummaryText     string `json:"summary_text"`
}

// FromRecord converts a domain record.
func FromRecord(r domain.ActRecord) Act {
	return Act{
		ActType:         r.ActType,
		ActNumber:       r.ActNumber,
		IssuingUnit:     r.IssuingUnit,
		PublicationDate: r.PublicationDate.Format(domain.DateLayout),
		SummaryText:     r.SummaryText,
	}
}

// FromRecords converts a batch.
func FromRecords(records []domain.ActRecord) []Act {
	out := make([]Act, len(records))
	for i, r := range records {
		out[i] = FromRecord(r)
	}
	return out
}

// Record parses the date. Blank text fields pass through; the act
// service applies the stricter checks for hand-entered acts.
func (a Act) Record() (domain.ActRecord, error) {
	date, err := domain.ParseDate(a.PublicationDate)
	if err != nil {
		return domain.ActRecord{}, err
	}
	r := domain.ActRecord{
		ActType:         a.ActType,
		ActNumber:       a.ActNumber,
		IssuingUnit:     a.IssuingUnit,
		PublicationDate: date,
		SummaryText:     a.SummaryText,
	}
	return r, r.ValidateLoadable()
}

// StoredAct is a persisted act as returned by the API.
type StoredAct struct {
	ID string `json:"id"`
	Act
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// FromStored converts a persisted act.
func FromStored(a domain.StoredAct) StoredAct {
	return StoredAct{
		ID:        a.ID,
		Act:       FromRecord(a.ActRecord),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// ActUpdate is a partial update; absent fields stay untouched.
type ActUpdate struct {
	ActType         *string `json:"act_type"`
	ActNumber       *string `json:"act_number"`
	IssuingUnit     *string `json:"issuing_unit"`
	PublicationDate *string `json:"publication_date"`
	SummaryText     *string `json:"summary_text"`
}

// Update converts to a domain update.
func (u ActUpdate) Update() (domain.ActUpdate, error) {
	out := domain.ActUpdate{
		ActType:     u.ActType,
		ActNumber:   u.ActNumber,
		IssuingUnit: u.IssuingUnit,
		SummaryText: u.SummaryText,
	}
	if u.PublicationDate != nil {
		d, err := domain.ParseDate(*u.PublicationDate)
		if err != nil {
			return domain.ActUpdate{}, err
		}
		out.PublicationDate = &d
	}
	return out, nil
}

// RunSummary is the Ingestor's report for one batch.
type RunSummary struct {
	Status           string  `json:"status"`
	RecordsPersisted int     `json:"records_persisted"`
	DurationSeconds  float64 `json:"duration_seconds"`
	ErrorMessage     *string `json:"error_message"`
}

// FromSummary converts a domain summary.
func FromSummary(s domain.RunSummary) RunSummary {
	return RunSummary{
		Status:           string(s.Status),
		RecordsPersisted: s.RecordsPersisted,
		DurationSeconds:  s.DurationSeconds,
		ErrorMessage:     optional(s.ErrorMessage),
	}
}

// Summary converts back to the domain, rejecting unknown statuses.
func (s RunSummary) Summary() (domain.RunSummary, error) {
	status, err := domain.ParseRunStatus(s.Status)
	if err != nil {
		return domain.RunSummary{}, err
	}
	out := domain.RunSummary{
		Status:           status,
		RecordsPersisted: s.RecordsPersisted,
		DurationSeconds:  s.DurationSeconds,
	}
	if s.ErrorMessage != nil {
		out.ErrorMessage = *s.ErrorMessage
	}
	return out, nil
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// RunLogEntry is one audit entry.
type RunLogEntry struct {
	ID               string    `json:"id"`
	ExecutedAt       time.Time `json:"execution_timestamp"`
	RecordsPersisted int       `json:"records_persisted"`
	Status           string    `json:"status"`
	ErrorMessage     *string   `json:"error_message"`
	DurationSeconds  float64   `json:"duration_seconds"`
}

// RunPage is one page of run history.
type RunPage struct {
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Total int           `json:"total"`
	Items []RunLogEntry `json:"items"`
}

// FromRunPage converts a domain page.
func FromRunPage(p domain.RunPage) RunPage {
	items := make([]RunLogEntry, len(p.Items))
	for i, e := range p.Items {
		items[i] = RunLogEntry{
			ID:               e.ID,
			ExecutedAt:       e.ExecutedAt,
			RecordsPersisted: e.RecordsPersisted,
			Status:           string(e.Status),
			ErrorMessage:     optional(e.ErrorMessage),
			DurationSeconds:  e.DurationSeconds,
		}
	}
	return RunPage{Page: p.Page, Size: p.Size, Total: p.Total, Items: items}
}

// ScheduleRequest asks for a new job.
type ScheduleRequest struct {
	ID      string `json:"id,omitempty"`
	Trigger string `json:"trigger"`
	Hours   *int   `json:"hours"`
	Minutes *int   `json:"minutes"`
}

// Request converts to the domain request.
func (r ScheduleRequest) Request() domain.ScheduleRequest {
	return domain.ScheduleRequest{ID: r.ID, Trigger: r.Trigger, Hours: r.Hours, Minutes: r.Minutes}
}

// ScheduleResponse confirms a new job.
type ScheduleResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Trigger string `json:"trigger"`
}

// JobSummary is the listing view of a job.
type JobSummary struct {
	ID      string    `json:"id"`
	NextRun time.Time `json:"next_run"`
	Trigger string    `json:"trigger"`
}

// FromJobs converts job summaries.
func FromJobs(jobs []domain.JobSummary) []JobSummary {
	out := make([]JobSummary, len(jobs))
	for i, j := range jobs {
		out[i] = JobSummary{ID: j.ID, NextRun: j.NextRun, Trigger: j.Trigger}
	}
	return out
}

// Bucket is one aggregate group.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Dashboard aggregates live acts.
type Dashboard struct {
	Total  int      `json:"total"`
	ByUnit []Bucket `json:"by_issuing_unit"`
	ByType []Bucket `json:"by_act_type"`
}

// FromDashboard converts a domain dashboard.
func FromDashboard(d domain.Dashboard) Dashboard {
	return Dashboard{Total: d.Total, ByUnit: buckets(d.ByUnit), ByType: buckets(d.ByType)}
}

func buckets(in []domain.CountBucket) []Bucket {
	out := make([]Bucket, len(in))
	for i, b := range in {
		out[i] = Bucket{Key: b.Key, Count: b.Count}
	}
	return out
}

// PipelineReport is the synchronous answer of a manual run.
type PipelineReport struct {
	ExtractedRows   int         `json:"extracted_rows"`
	SubmitStatus    int         `json:"submit_status,omitempty"`
	SubmitError     string      `json:"submit_error,omitempty"`
	Summary         *RunSummary `json:"summary"`
	DurationSeconds float64     `json:"duration_seconds"`
}

// FromReport converts a pipeline report.
func FromReport(r domain.PipelineReport) PipelineReport {
	out := PipelineReport{
		ExtractedRows:   r.ExtractedRows,
		SubmitStatus:    r.SubmitStatus,
		SubmitError:     r.SubmitError,
		DurationSeconds: r.Duration.Seconds(),
	}
	if r.Summary != nil {
		s := FromSummary(*r.Summary)
		out.Summary = &s
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
