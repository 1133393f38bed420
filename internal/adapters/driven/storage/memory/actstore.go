package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// Ensure ActStore implements the interface.
var _ driven.ActStore = (*ActStore)(nil)

// ActStore is an in-memory implementation of driven.ActStore.
// Writers are serialised the way a single-writer database would:
// an open ingest transaction blocks other writers until it ends.
type ActStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	acts    map[string]domain.StoredAct
	now     func() time.Time
}

// NewActStore creates a new in-memory act store.
func NewActStore() *ActStore {
	return &ActStore{
		acts: make(map[string]domain.StoredAct),
		now:  time.Now,
	}
}

// BeginIngest opens an ingest transaction.
func (s *ActStore) BeginIngest(ctx context.Context) (driven.IngestTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.writeMu.Lock()
	return &ingestTx{store: s, keys: s.liveKeys()}, nil
}

// Create inserts a single act.
func (s *ActStore) Create(_ context.Context, act domain.StoredAct) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.liveKeys()[act.Key()] {
		return domain.ErrAlreadyExists
	}
	s.mu.Lock()
	s.acts[act.ID] = act
	s.mu.Unlock()
	return nil
}

// Get retrieves a live act by ID.
func (s *ActStore) Get(_ context.Context, id string) (*domain.StoredAct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	act, ok := s.acts[id]
	if !ok || act.IsDeleted() {
		return nil, domain.ErrNotFound
	}
	return &act, nil
}

// List returns live acts matching the filter, newest publication first.
func (s *ActStore) List(_ context.Context, filter domain.ActFilter) ([]domain.StoredAct, error) {
	acts := s.filtered(filter)
	sort.Slice(acts, func(i, j int) bool {
		if !acts[i].PublicationDate.Equal(acts[j].PublicationDate) {
			return acts[i].PublicationDate.After(acts[j].PublicationDate)
		}
		return acts[i].CreatedAt.After(acts[j].CreatedAt)
	})
	return acts, nil
}

// Update overwrites a live act.
func (s *ActStore) Update(_ context.Context, act domain.StoredAct) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.acts[act.ID]
	if !ok || current.IsDeleted() {
		return domain.ErrNotFound
	}
	for id, other := range s.acts {
		if id != act.ID && !other.IsDeleted() && other.Key() == act.Key() {
			return domain.ErrAlreadyExists
		}
	}
	act.CreatedAt = current.CreatedAt
	act.DeletedAt = nil
	s.acts[act.ID] = act
	return nil
}

// SoftDelete marks a live act as deleted.
func (s *ActStore) SoftDelete(_ context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	act, ok := s.acts[id]
	if !ok || act.IsDeleted() {
		return domain.ErrNotFound
	}
	now := s.now().UTC()
	act.DeletedAt = &now
	s.acts[id] = act
	return nil
}

// Dashboard aggregates live acts within the filter's date bounds.
// The text search of the filter is ignored.
func (s *ActStore) Dashboard(_ context.Context, filter domain.ActFilter) (*domain.Dashboard, error) {
	filter.Search = ""
	acts := s.filtered(filter)

	byUnit := make(map[string]int)
	byType := make(map[string]int)
	for _, a := range acts {
		byUnit[a.IssuingUnit]++
		byType[a.ActType]++
	}
	return &domain.Dashboard{
		Total:  len(acts),
		ByUnit: buckets(byUnit),
		ByType: buckets(byType),
	}, nil
}

func (s *ActStore) filtered(filter domain.ActFilter) []domain.StoredAct {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.StoredAct, 0, len(s.acts))
	for _, a := range s.acts {
		if a.IsDeleted() {
			continue
		}
		if filter.From != nil && a.PublicationDate.Before(domain.DateOf(*filter.From)) {
			continue
		}
		if filter.To != nil && a.PublicationDate.After(domain.DateOf(*filter.To)) {
			continue
		}
		if search != "" && !matches(a, search) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *ActStore) liveKeys() map[domain.ActKey]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(map[domain.ActKey]bool, len(s.acts))
	for _, a := range s.acts {
		if !a.IsDeleted() {
			keys[a.Key()] = true
		}
	}
	return keys
}

func matches(a domain.StoredAct, needle string) bool {
	for _, field := range []string{a.ActType, a.ActNumber, a.IssuingUnit, a.SummaryText} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// buckets orders counts by size, then key.
func buckets(counts map[string]int) []domain.CountBucket {
	out := make([]domain.CountBucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.CountBucket{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ingestTx stages inserts until Commit. It holds the store's writer lock.
type ingestTx struct {
	store   *ActStore
	keys    map[domain.ActKey]bool
	pending []domain.StoredAct
	done    bool
}

func (tx *ingestTx) InsertIgnoringConflicts(ctx context.Context, acts []domain.StoredAct) (int, error) {
	if tx.done {
		return 0, domain.ErrPersistence
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for _, a := range acts {
		key := a.Key()
		if tx.keys[key] {
			continue
		}
		tx.keys[key] = true
		tx.pending = append(tx.pending, a)
		n++
	}
	return n, nil
}

func (tx *ingestTx) Commit() error {
	if tx.done {
		return domain.ErrPersistence
	}
	tx.store.mu.Lock()
	for _, a := range tx.pending {
		tx.store.acts[a.ID] = a
	}
	tx.store.mu.Unlock()
	tx.finish()
	return nil
}

func (tx *ingestTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.pending = nil
	tx.finish()
	return nil
}

func (tx *ingestTx) finish() {
	tx.done = true
	tx.store.writeMu.Unlock()
}
