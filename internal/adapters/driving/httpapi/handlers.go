package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/actharvest/internal/adapters/apitypes"
	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// maxBodyBytes caps request bodies; a full batch of acts fits comfortably.
const maxBodyBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "malformed form body")
		return
	}
	tok, err := s.ports.Tokens.Login(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// Acts

func (s *Server) handleCreateAct(w http.ResponseWriter, r *http.Request) {
	var in apitypes.Act
	if !decode(w, r, &in) {
		return
	}
	record, err := in.Record()
	if err != nil {
		writeError(w, r, err)
		return
	}
	act, err := s.ports.Acts.Create(r.Context(), record)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, apitypes.FromStored(*act))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var in []apitypes.Act
	if !decode(w, r, &in) {
		return
	}
	batch := make([]domain.ActRecord, len(in))
	for i, a := range in {
		record, err := a.Record()
		if err != nil {
			writeError(w, r, fmt.Errorf("item %d: %w", i, err))
			return
		}
		batch[i] = record
	}
	summary := s.ports.Ingestor.Ingest(r.Context(), batch)
	writeJSON(w, http.StatusOK, apitypes.FromSummary(summary))
}

func (s *Server) handleListActs(w http.ResponseWriter, r *http.Request) {
	filter, err := actFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acts, err := s.ports.Acts.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apitypes.StoredAct, len(acts))
	for i, a := range acts {
		out[i] = apitypes.FromStored(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAct(w http.ResponseWriter, r *http.Request) {
	act, err := s.ports.Acts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.FromStored(*act))
}

func (s *Server) handleUpdateAct(w http.ResponseWriter, r *http.Request) {
	var in apitypes.ActUpdate
	if !decode(w, r, &in) {
		return
	}
	update, err := in.Update()
	if err != nil {
		writeError(w, r, err)
		return
	}
	act, err := s.ports.Acts.Update(r.Context(), r.PathValue("id"), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.FromStored(*act))
}

func (s *Server) handleDeleteAct(w http.ResponseWriter, r *http.Request) {
	if err := s.ports.Acts.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "act deleted"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := actFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.Search = ""
	d, err := s.ports.Acts.Dashboard(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.FromDashboard(*d))
}

// Pipeline and schedules

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.ports.Pipeline == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "pipeline is not configured")
		return
	}
	logger.Info("manual pipeline run requested")
	report, err := s.ports.Pipeline.Run(r.Context())
	if err != nil {
		if report == nil {
			writeError(w, r, err)
			return
		}
		// The run failed but was audited; the report says how far it got.
		logger.Warn("manual run failed: %v", err)
		writeJSON(w, http.StatusOK, apitypes.FromReport(*report))
		return
	}
	writeJSON(w, http.StatusOK, apitypes.FromReport(*report))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if s.ports.Scheduler == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "scheduler is not running")
		return
	}
	var in apitypes.ScheduleRequest
	if !decode(w, r, &in) {
		return
	}
	job, err := s.ports.Scheduler.Schedule(r.Context(), in.Request())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.ScheduleResponse{
		Status:  "scheduled",
		JobID:   job.ID,
		Trigger: string(job.Trigger),
	})
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	if s.ports.Scheduler == nil {
		writeJSON(w, http.StatusOK, []apitypes.JobSummary{})
		return
	}
	jobs, err := s.ports.Scheduler.ListJobs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.FromJobs(jobs))
}

func (s *Server) handleUnschedule(w http.ResponseWriter, r *http.Request) {
	if s.ports.Scheduler == nil {
		writeProblem(w, r, http.StatusNotFound, "no such job")
		return
	}
	jobID := r.PathValue("job_id")
	if err := s.ports.Scheduler.Unschedule(r.Context(), jobID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "job removed", "job_id": jobID})
}

func (s *Server) handleRunLogs(w http.ResponseWriter, r *http.Request) {
	query, err := runQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.ports.Runs.ListRuns(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.FromRunPage(*page))
}

// Request parsing

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		detail := "malformed JSON body"
		if err == io.EOF {
			detail = "empty body"
		}
		writeProblem(w, r, http.StatusBadRequest, detail)
		return false
	}
	return true
}

func actFilter(r *http.Request) (domain.ActFilter, error) {
	q := r.URL.Query()
	from, err := dateParam(q.Get("date_from"))
	if err != nil {
		return domain.ActFilter{}, err
	}
	to, err := dateParam(q.Get("date_to"))
	if err != nil {
		return domain.ActFilter{}, err
	}
	return domain.ActFilter{From: from, To: to, Search: q.Get("search")}, nil
}

func runQuery(r *http.Request) (domain.RunQuery, error) {
	q := r.URL.Query()
	query := domain.RunQuery{Page: 1, Size: domain.DefaultPageSize}

	var err error
	if query.Page, err = intParam(q.Get("page"), query.Page); err != nil {
		return query, err
	}
	if query.Size, err = intParam(q.Get("size"), query.Size); err != nil {
		return query, err
	}
	if v := q.Get("status"); v != "" {
		if query.Status, err = domain.ParseRunStatus(v); err != nil {
			return query, err
		}
	}
	if query.From, err = dateParam(q.Get("date_from")); err != nil {
		return query, err
	}
	if query.To, err = dateParam(q.Get("date_to")); err != nil {
		return query, err
	}
	return query, nil
}

func dateParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidInput, v)
	}
	return n, nil
}
