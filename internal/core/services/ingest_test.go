package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

func testAct(number, date, unit string) domain.ActRecord {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return domain.ActRecord{
		ActType:         "Portaria",
		ActNumber:       number,
		IssuingUnit:     unit,
		PublicationDate: d,
		SummaryText:     "summary " + number,
	}
}

func newTestIngest(chunkSize int) (*IngestService, *mockActStore, *mockRunLogStore, *mockMetrics) {
	acts := newMockActStore()
	runs := &mockRunLogStore{}
	metrics := &mockMetrics{}
	return NewIngestService(acts, runs, metrics, chunkSize), acts, runs, metrics
}

func TestNewIngestService_DefaultsChunkSize(t *testing.T) {
	svc := NewIngestService(newMockActStore(), &mockRunLogStore{}, nil, 0)
	assert.Equal(t, domain.DefaultChunkSize, svc.chunkSize)
	assert.NotNil(t, svc.metrics)
}

func TestIngest_SkipsDuplicateNaturalKeys(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(500)

	batch := []domain.ActRecord{
		testAct("1", "2024-03-01", "RFB"),
		testAct("2", "2024-03-01", "RFB"),
		testAct("1", "2024-03-01", "RFB"),
	}

	summary := svc.Ingest(context.Background(), batch)

	assert.Equal(t, domain.RunSuccess, summary.Status)
	assert.Equal(t, 2, summary.RecordsPersisted)
	assert.Empty(t, summary.ErrorMessage)
	assert.Equal(t, 2, acts.liveCount())

	entries := runs.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RunSuccess, entries[0].Status)
	assert.Equal(t, 2, entries[0].RecordsPersisted)
	assert.NotEmpty(t, entries[0].ID)
}

func TestIngest_IsIdempotent(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(2)

	batch := []domain.ActRecord{
		testAct("1", "2024-03-01", "RFB"),
		testAct("2", "2024-03-02", "RFB"),
		testAct("3", "2024-03-03", "COSIT"),
	}

	first := svc.Ingest(context.Background(), batch)
	second := svc.Ingest(context.Background(), batch)

	assert.Equal(t, 3, first.RecordsPersisted)
	assert.Equal(t, domain.RunSuccess, second.Status)
	assert.Equal(t, 0, second.RecordsPersisted)
	assert.Equal(t, 3, acts.liveCount())
	assert.Len(t, runs.recorded(), 2)
}

func TestIngest_ChunkSizeDoesNotChangeResult(t *testing.T) {
	var batch []domain.ActRecord
	for i := 0; i < 23; i++ {
		// every fifth record repeats an earlier key
		n := i
		if i%5 == 4 {
			n = i - 4
		}
		batch = append(batch, testAct(fmt.Sprint(n), "2024-01-10", "RFB"))
	}

	whole, wholeStore, _, _ := newTestIngest(len(batch))
	want := whole.Ingest(context.Background(), batch)

	for _, size := range []int{1, 2, 3, 7, 500} {
		t.Run(fmt.Sprintf("chunk=%d", size), func(t *testing.T) {
			svc, store, _, _ := newTestIngest(size)
			got := svc.Ingest(context.Background(), batch)
			assert.Equal(t, want.RecordsPersisted, got.RecordsPersisted)
			assert.Equal(t, wholeStore.liveCount(), store.liveCount())
		})
	}
}

func TestIngest_PartitionsIntoChunks(t *testing.T) {
	svc, acts, _, _ := newTestIngest(2)

	batch := []domain.ActRecord{
		testAct("1", "2024-03-01", "RFB"),
		testAct("2", "2024-03-01", "RFB"),
		testAct("3", "2024-03-01", "RFB"),
		testAct("4", "2024-03-01", "RFB"),
		testAct("5", "2024-03-01", "RFB"),
	}
	svc.Ingest(context.Background(), batch)

	assert.Equal(t, []int{2, 2, 1}, acts.chunks)
	assert.Equal(t, 1, acts.commits)
}

func TestIngest_EmptyBatch(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(500)

	summary := svc.Ingest(context.Background(), nil)

	assert.Equal(t, domain.RunSuccess, summary.Status)
	assert.Equal(t, 0, summary.RecordsPersisted)
	assert.Equal(t, 0, acts.liveCount())
	require.Len(t, runs.recorded(), 1)
	assert.Equal(t, domain.RunSuccess, runs.recorded()[0].Status)
}

func TestIngest_ChunkFailureRollsBackEverything(t *testing.T) {
	svc, acts, runs, metrics := newTestIngest(2)
	acts.insertErr = errors.New("connection reset")
	acts.failChunk = 2

	batch := []domain.ActRecord{
		testAct("1", "2024-03-01", "RFB"),
		testAct("2", "2024-03-01", "RFB"),
		testAct("3", "2024-03-01", "RFB"),
	}
	summary := svc.Ingest(context.Background(), batch)

	assert.Equal(t, domain.RunError, summary.Status)
	assert.Equal(t, 0, summary.RecordsPersisted)
	assert.Contains(t, summary.ErrorMessage, "connection reset")
	assert.Equal(t, 0, acts.liveCount())
	assert.Equal(t, 1, acts.rollbacks)
	assert.Equal(t, 0, acts.commits)

	entries := runs.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RunError, entries[0].Status)
	assert.Equal(t, 0, entries[0].RecordsPersisted)
	assert.Equal(t, summary.ErrorMessage, entries[0].ErrorMessage)

	require.Len(t, metrics.runs, 1)
	assert.Equal(t, domain.RunError, metrics.runs[0].Status)
}

func TestIngest_CommitFailureReportsZero(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(500)
	acts.commitErr = errors.New("disk full")

	summary := svc.Ingest(context.Background(), []domain.ActRecord{testAct("1", "2024-03-01", "RFB")})

	assert.Equal(t, domain.RunError, summary.Status)
	assert.Equal(t, 0, summary.RecordsPersisted)
	assert.Contains(t, summary.ErrorMessage, "disk full")
	assert.Len(t, runs.recorded(), 1)
}

func TestIngest_BeginFailure(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(500)
	acts.beginErr = errors.New("pool exhausted")

	summary := svc.Ingest(context.Background(), []domain.ActRecord{testAct("1", "2024-03-01", "RFB")})

	assert.Equal(t, domain.RunError, summary.Status)
	assert.Contains(t, summary.ErrorMessage, "pool exhausted")
	assert.Len(t, runs.recorded(), 1)
}

func TestIngest_BlankTextFieldsAreStored(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(500)

	batch := []domain.ActRecord{
		testAct("1", "2024-03-01", "RFB"),
		testAct("2", "2024-03-01", ""),
		testAct("3", "2024-03-01", "RFB"),
	}
	batch[2].ActType = ""

	summary := svc.Ingest(context.Background(), batch)

	assert.Equal(t, domain.RunSuccess, summary.Status)
	assert.Equal(t, 3, summary.RecordsPersisted)
	assert.Empty(t, summary.ErrorMessage)
	assert.Equal(t, 3, acts.liveCount())
	require.Len(t, runs.recorded(), 1)
	assert.Equal(t, domain.RunSuccess, runs.recorded()[0].Status)
}

func TestIngest_InvalidRecord(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(500)

	bad := testAct("1", "2024-03-01", "RFB")
	bad.PublicationDate = time.Time{}

	summary := svc.Ingest(context.Background(), []domain.ActRecord{testAct("2", "2024-03-01", "RFB"), bad})

	assert.Equal(t, domain.RunError, summary.Status)
	assert.Contains(t, summary.ErrorMessage, "record 1")
	assert.Empty(t, acts.chunks)
	assert.Len(t, runs.recorded(), 1)
}

func TestIngest_AuditFailureDoesNotAffectSummary(t *testing.T) {
	svc, acts, runs, _ := newTestIngest(500)
	runs.recordErr = errors.New("audit table locked")

	summary := svc.Ingest(context.Background(), []domain.ActRecord{testAct("1", "2024-03-01", "RFB")})

	assert.Equal(t, domain.RunSuccess, summary.Status)
	assert.Equal(t, 1, summary.RecordsPersisted)
	assert.Equal(t, 1, acts.liveCount())
}

func TestIngest_AuditSurvivesCancelledContext(t *testing.T) {
	svc, _, runs, _ := newTestIngest(500)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Ingest(ctx, nil)

	assert.Len(t, runs.recorded(), 1)
}
