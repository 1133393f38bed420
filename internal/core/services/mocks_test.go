package services

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockActStore implements driven.ActStore with natural-key deduplication.
type mockActStore struct {
	mu        sync.Mutex
	acts      map[string]domain.StoredAct
	beginErr  error
	insertErr error
	failChunk int // 1-based chunk that fails with insertErr; 0 means every chunk
	commitErr error
	getErr    error
	chunks    []int
	commits   int
	rollbacks int
}

func newMockActStore() *mockActStore {
	return &mockActStore{acts: make(map[string]domain.StoredAct)}
}

func (m *mockActStore) liveKeys() map[domain.ActKey]bool {
	keys := make(map[domain.ActKey]bool, len(m.acts))
	for _, a := range m.acts {
		if !a.IsDeleted() {
			keys[a.Key()] = true
		}
	}
	return keys
}

func (m *mockActStore) BeginIngest(_ context.Context) (driven.IngestTx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return &mockIngestTx{store: m}, nil
}

func (m *mockActStore) Create(_ context.Context, act domain.StoredAct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.liveKeys()[act.Key()] {
		return domain.ErrAlreadyExists
	}
	m.acts[act.ID] = act
	return nil
}

func (m *mockActStore) Get(_ context.Context, id string) (*domain.StoredAct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.acts[id]
	if !ok || a.IsDeleted() {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *mockActStore) List(_ context.Context, _ domain.ActFilter) ([]domain.StoredAct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StoredAct, 0, len(m.acts))
	for _, a := range m.acts {
		if !a.IsDeleted() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActNumber < out[j].ActNumber })
	return out, nil
}

func (m *mockActStore) Update(_ context.Context, act domain.StoredAct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.acts[act.ID]
	if !ok || current.IsDeleted() {
		return domain.ErrNotFound
	}
	for id, other := range m.acts {
		if id != act.ID && !other.IsDeleted() && other.Key() == act.Key() {
			return domain.ErrAlreadyExists
		}
	}
	m.acts[act.ID] = act
	return nil
}

func (m *mockActStore) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.acts[id]
	if !ok || a.IsDeleted() {
		return domain.ErrNotFound
	}
	now := a.CreatedAt
	a.DeletedAt = &now
	m.acts[id] = a
	return nil
}

func (m *mockActStore) Dashboard(ctx context.Context, filter domain.ActFilter) (*domain.Dashboard, error) {
	acts, _ := m.List(ctx, filter)
	return &domain.Dashboard{Total: len(acts)}, nil
}

func (m *mockActStore) liveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.liveKeys())
}

// mockIngestTx stages inserts until Commit.
type mockIngestTx struct {
	store   *mockActStore
	pending []domain.StoredAct
	done    bool
}

func (tx *mockIngestTx) InsertIgnoringConflicts(_ context.Context, acts []domain.StoredAct) (int, error) {
	m := tx.store
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, len(acts))
	if m.insertErr != nil && (m.failChunk == 0 || m.failChunk == len(m.chunks)) {
		return 0, m.insertErr
	}
	keys := m.liveKeys()
	for _, p := range tx.pending {
		keys[p.Key()] = true
	}
	n := 0
	for _, a := range acts {
		if keys[a.Key()] {
			continue
		}
		keys[a.Key()] = true
		tx.pending = append(tx.pending, a)
		n++
	}
	return n, nil
}

func (tx *mockIngestTx) Commit() error {
	m := tx.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	for _, a := range tx.pending {
		m.acts[a.ID] = a
	}
	tx.done = true
	m.commits++
	return nil
}

func (tx *mockIngestTx) Rollback() error {
	if tx.done {
		return nil
	}
	m := tx.store
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.pending = nil
	tx.done = true
	m.rollbacks++
	return nil
}

// mockRunLogStore implements driven.RunLogStore for testing.
type mockRunLogStore struct {
	mu        sync.Mutex
	entries   []domain.RunLogEntry
	recordErr error
	listErr   error
	lastQuery domain.RunQuery
}

func (m *mockRunLogStore) Record(_ context.Context, entry domain.RunLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRunLogStore) List(_ context.Context, query domain.RunQuery) (*domain.RunPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = query
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &domain.RunPage{Page: query.Page, Size: query.Size, Total: len(m.entries)}, nil
}

func (m *mockRunLogStore) recorded() []domain.RunLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RunLogEntry(nil), m.entries...)
}

// mockMetrics implements driven.RunMetrics for testing.
type mockMetrics struct {
	mu        sync.Mutex
	runs      []domain.RunSummary
	extracted []int
	fires     map[string]int
}

func (m *mockMetrics) ObserveRun(s domain.RunSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, s)
}

func (m *mockMetrics) ObserveExtraction(rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracted = append(m.extracted, rows)
}

func (m *mockMetrics) ObserveFire(jobID string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fires == nil {
		m.fires = make(map[string]int)
	}
	m.fires[jobID]++
}

var (
	_ driven.ActStore    = (*mockActStore)(nil)
	_ driven.IngestTx    = (*mockIngestTx)(nil)
	_ driven.RunLogStore = (*mockRunLogStore)(nil)
	_ driven.RunMetrics  = (*mockMetrics)(nil)
)
