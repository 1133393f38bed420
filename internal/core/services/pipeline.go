package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.Pipeline = (*PipelineService)(nil)

// PipelineLockKey is the single-flight key shared by every pipeline run.
const PipelineLockKey = "actharvest:pipeline"

// maxErrorBody caps how much of a rejected submission is kept in the report.
const maxErrorBody = 2048

// PipelineService wires the extract, normalise and load stages together.
type PipelineService struct {
	extractor  driven.Extractor
	normaliser driven.ActNormaliser
	gateway    driven.IngestionGateway
	auditor    driving.RunAuditor
	lock       driven.RunLock
	metrics    driven.RunMetrics
	now        func() time.Time
}

// PipelineOption configures optional collaborators.
type PipelineOption func(*PipelineService)

// WithRunLock serialises runs through lock.
func WithRunLock(lock driven.RunLock) PipelineOption {
	return func(p *PipelineService) { p.lock = lock }
}

// WithPipelineMetrics reports extraction sizes to metrics.
func WithPipelineMetrics(metrics driven.RunMetrics) PipelineOption {
	return func(p *PipelineService) {
		if metrics != nil {
			p.metrics = metrics
		}
	}
}

// NewPipelineService creates the pipeline entry point.
func NewPipelineService(
	extractor driven.Extractor,
	normaliser driven.ActNormaliser,
	gateway driven.IngestionGateway,
	auditor driving.RunAuditor,
	opts ...PipelineOption,
) *PipelineService {
	p := &PipelineService{
		extractor:  extractor,
		normaliser: normaliser,
		gateway:    gateway,
		auditor:    auditor,
		metrics:    driven.NopMetrics{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one pipeline cycle.
//
// The caller's cancellation is not propagated: once started, a run goes
// to completion or failure. Authentication, extraction and normalisation
// failures abort the run, are audited as ERROR and returned. A failed
// submission is audited and reported but not returned as an error.
func (p *PipelineService) Run(ctx context.Context) (*domain.PipelineReport, error) {
	ctx = context.WithoutCancel(ctx)

	if p.lock != nil {
		release, err := p.lock.Acquire(ctx, PipelineLockKey)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	started := p.now()
	report := &domain.PipelineReport{}
	logger.Section("Pipeline Run")

	batch, err := p.prepare(ctx, report)
	if err != nil {
		report.Duration = p.now().Sub(started)
		report.Summary = p.fail(ctx, started, report.Duration, err.Error())
		logger.Error("pipeline: run aborted after %s: %v", report.Duration, err)
		return report, err
	}

	result, err := p.gateway.SubmitBatch(ctx, batch)
	report.Duration = p.now().Sub(started)
	switch {
	case err != nil:
		report.SubmitError = err.Error()
		report.Summary = p.fail(ctx, started, report.Duration, "submit: "+err.Error())
	case !result.Accepted():
		report.SubmitStatus = result.StatusCode
		report.SubmitError = truncate(result.Body, maxErrorBody)
		report.Summary = p.fail(ctx, started, report.Duration,
			fmt.Sprintf("submit rejected with status %d: %s", result.StatusCode, report.SubmitError))
	default:
		report.SubmitStatus = result.StatusCode
		report.Summary = result.Summary
	}

	logger.Info("pipeline: %d rows extracted, submit status %d, took %s",
		report.ExtractedRows, report.SubmitStatus, report.Duration)
	return report, nil
}

// prepare authenticates, extracts and normalises. The first failure wins.
func (p *PipelineService) prepare(ctx context.Context, report *domain.PipelineReport) ([]domain.ActRecord, error) {
	if err := p.gateway.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	rows, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	report.ExtractedRows = len(rows)
	p.metrics.ObserveExtraction(len(rows))
	logger.Debug("pipeline: extracted %d rows", len(rows))

	batch := make([]domain.ActRecord, 0, len(rows))
	for i, row := range rows {
		record, err := p.normaliser.Normalise(row)
		if err != nil {
			return nil, fmt.Errorf("normalise row %d: %w", i, err)
		}
		batch = append(batch, record)
	}
	return batch, nil
}

// fail audits a run that did not reach the Ingestor and returns its summary.
func (p *PipelineService) fail(ctx context.Context, started time.Time, took time.Duration, msg string) *domain.RunSummary {
	summary := domain.RunSummary{
		Status:          domain.RunError,
		DurationSeconds: took.Seconds(),
		ErrorMessage:    msg,
	}
	if err := p.auditor.Record(ctx, started, summary); err != nil {
		logger.Error("pipeline: failed to record run: %v", err)
	}
	p.metrics.ObserveRun(summary)
	return &summary
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
