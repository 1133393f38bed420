package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// --- Mock implementations for pipeline testing ---

type mockExtractor struct {
	rows  []domain.RawActRow
	err   error
	calls int
}

func (m *mockExtractor) Extract(_ context.Context) ([]domain.RawActRow, error) {
	m.calls++
	return m.rows, m.err
}

// mockNormaliser parses DD/MM/YYYY dates and passes text through.
type mockNormaliser struct{}

func (mockNormaliser) Normalise(row domain.RawActRow) (domain.ActRecord, error) {
	d, err := time.Parse("02/01/2006", row.PublicationDate)
	if err != nil {
		return domain.ActRecord{}, fmt.Errorf("%w: %q", domain.ErrParse, row.PublicationDate)
	}
	return domain.ActRecord{
		ActType:         row.ActType,
		ActNumber:       row.Number,
		IssuingUnit:     row.Unit,
		PublicationDate: d,
		SummaryText:     row.Summary,
	}, nil
}

// mockGateway forwards to an Ingestor like the local gateway does,
// unless a canned result or error is set.
type mockGateway struct {
	ingest    *IngestService
	authErr   error
	submitErr error
	result    *domain.SubmitResult
	submitted [][]domain.ActRecord
}

func (m *mockGateway) Authenticate(_ context.Context) error {
	return m.authErr
}

func (m *mockGateway) SubmitBatch(ctx context.Context, batch []domain.ActRecord) (*domain.SubmitResult, error) {
	m.submitted = append(m.submitted, batch)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if m.result != nil {
		return m.result, nil
	}
	summary := m.ingest.Ingest(ctx, batch)
	return &domain.SubmitResult{StatusCode: http.StatusOK, Summary: &summary}, nil
}

type mockRunLock struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (m *mockRunLock) Acquire(_ context.Context, _ string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held {
		return nil, domain.ErrRunInProgress
	}
	m.held = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.held = false
		m.released++
	}, nil
}

var (
	_ driven.Extractor        = (*mockExtractor)(nil)
	_ driven.ActNormaliser    = mockNormaliser{}
	_ driven.IngestionGateway = (*mockGateway)(nil)
	_ driven.RunLock          = (*mockRunLock)(nil)
)

type pipelineFixture struct {
	pipeline  *PipelineService
	extractor *mockExtractor
	gateway   *mockGateway
	acts      *mockActStore
	runs      *mockRunLogStore
	metrics   *mockMetrics
}

func newPipelineFixture(rows []domain.RawActRow, opts ...PipelineOption) *pipelineFixture {
	acts := newMockActStore()
	runs := &mockRunLogStore{}
	metrics := &mockMetrics{}
	ingest := NewIngestService(acts, runs, metrics, 2)
	extractor := &mockExtractor{rows: rows}
	gateway := &mockGateway{ingest: ingest}
	opts = append(opts, WithPipelineMetrics(metrics))
	p := NewPipelineService(extractor, mockNormaliser{}, gateway, NewRunService(runs), opts...)
	return &pipelineFixture{p, extractor, gateway, acts, runs, metrics}
}

func rawRow(number, date string) domain.RawActRow {
	return domain.RawActRow{
		ActType:         "Portaria",
		Number:          number,
		Unit:            "RFB",
		PublicationDate: date,
		Summary:         "summary",
	}
}

func TestPipeline_Run_Success(t *testing.T) {
	f := newPipelineFixture([]domain.RawActRow{
		rawRow("1", "01/03/2024"),
		rawRow("2", "01/03/2024"),
		rawRow("1", "01/03/2024"),
	})

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.ExtractedRows)
	assert.Equal(t, http.StatusOK, report.SubmitStatus)
	assert.Empty(t, report.SubmitError)
	require.NotNil(t, report.Summary)
	assert.Equal(t, domain.RunSuccess, report.Summary.Status)
	assert.Equal(t, 2, report.Summary.RecordsPersisted)

	// only the Ingestor audits a successful run
	entries := f.runs.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RunSuccess, entries[0].Status)
	assert.Equal(t, []int{3}, f.metrics.extracted)
}

func TestPipeline_Run_EmptyExtraction(t *testing.T) {
	f := newPipelineFixture(nil)

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.ExtractedRows)
	require.NotNil(t, report.Summary)
	assert.Equal(t, domain.RunSuccess, report.Summary.Status)
	assert.Equal(t, 0, report.Summary.RecordsPersisted)
	assert.Len(t, f.runs.recorded(), 1)
}

func TestPipeline_Run_InvalidDateAbortsRun(t *testing.T) {
	f := newPipelineFixture([]domain.RawActRow{
		rawRow("1", "01/03/2024"),
		rawRow("2", "31/02/2024"),
	})

	report, err := f.pipeline.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.Empty(t, f.gateway.submitted)
	assert.Equal(t, 0, f.acts.liveCount())

	entries := f.runs.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RunError, entries[0].Status)
	assert.Contains(t, entries[0].ErrorMessage, "31/02/2024")
	require.NotNil(t, report)
	assert.Equal(t, domain.RunError, report.Summary.Status)
}

func TestPipeline_Run_AbortedRunStampedWithStart(t *testing.T) {
	f := newPipelineFixture(nil)
	f.extractor.err = fmt.Errorf("%w: layout changed", domain.ErrExtraction)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	f.pipeline.now = func() time.Time {
		now := clock.Now()
		clock.Advance(5 * time.Second)
		return now
	}

	_, err := f.pipeline.Run(context.Background())
	require.Error(t, err)

	entries := f.runs.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, start, entries[0].ExecutedAt)
	assert.InDelta(t, 5.0, entries[0].DurationSeconds, 0.001)
}

func TestPipeline_Run_ExtractionFailure(t *testing.T) {
	f := newPipelineFixture(nil)
	f.extractor.err = fmt.Errorf("%w: results table never rendered", domain.ErrExtraction)

	_, err := f.pipeline.Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrExtraction)
	entries := f.runs.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RunError, entries[0].Status)
	assert.Contains(t, entries[0].ErrorMessage, "results table never rendered")
}

func TestPipeline_Run_AuthenticationFailureSkipsExtraction(t *testing.T) {
	f := newPipelineFixture([]domain.RawActRow{rawRow("1", "01/03/2024")})
	f.gateway.authErr = fmt.Errorf("%w: login returned 401", domain.ErrUnauthorized)

	_, err := f.pipeline.Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, f.extractor.calls)
	assert.Len(t, f.runs.recorded(), 1)
}

func TestPipeline_Run_SubmitTransportFailureIsCaptured(t *testing.T) {
	f := newPipelineFixture([]domain.RawActRow{rawRow("1", "01/03/2024")})
	f.gateway.submitErr = errors.New("dial tcp: connection refused")

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report.SubmitError, "connection refused")
	assert.Equal(t, domain.RunError, report.Summary.Status)
	entries := f.runs.recorded()
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].ErrorMessage, "submit: "))
}

func TestPipeline_Run_RejectedSubmissionIsCaptured(t *testing.T) {
	f := newPipelineFixture([]domain.RawActRow{rawRow("1", "01/03/2024")})
	f.gateway.result = &domain.SubmitResult{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"detail":"token expired"}`,
	}

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, report.SubmitStatus)
	assert.Contains(t, report.SubmitError, "token expired")
	entries := f.runs.recorded()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ErrorMessage, "status 401")
}

func TestPipeline_Run_SingleFlight(t *testing.T) {
	lock := &mockRunLock{}
	f := newPipelineFixture(nil, WithRunLock(lock))

	release, err := lock.Acquire(context.Background(), PipelineLockKey)
	require.NoError(t, err)

	_, err = f.pipeline.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.Zero(t, f.extractor.calls)
	assert.Empty(t, f.runs.recorded())

	release()
	_, err = f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lock.released)
}

func TestPipeline_Run_IgnoresCallerCancellation(t *testing.T) {
	f := newPipelineFixture([]domain.RawActRow{rawRow("1", "01/03/2024")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.pipeline.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.RecordsPersisted)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))

	// ç and ã are two bytes each
	body := "instrução"
	for n := 0; n <= len(body); n++ {
		got := truncate(body, n)
		assert.True(t, utf8.ValidString(got), "n=%d got %q", n, got)
		assert.LessOrEqual(t, len(got), n)
	}
	assert.Equal(t, "instru", truncate(body, 7))
}
