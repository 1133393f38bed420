package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// Ensure RunLogStore implements the interface.
var _ driven.RunLogStore = (*RunLogStore)(nil)

// RunLogStore is an in-memory implementation of driven.RunLogStore.
type RunLogStore struct {
	mu      sync.RWMutex
	entries []domain.RunLogEntry
}

// NewRunLogStore creates a new in-memory run log.
func NewRunLogStore() *RunLogStore {
	return &RunLogStore{}
}

// Record appends an entry.
func (s *RunLogStore) Record(_ context.Context, entry domain.RunLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns one page of entries, newest first.
func (s *RunLogStore) List(_ context.Context, query domain.RunQuery) (*domain.RunPage, error) {
	start, end := query.Window()

	s.mu.RLock()
	matched := make([]domain.RunLogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if query.Status != "" && e.Status != query.Status {
			continue
		}
		if start != nil && e.ExecutedAt.Before(*start) {
			continue
		}
		if end != nil && !e.ExecutedAt.Before(*end) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ExecutedAt.After(matched[j].ExecutedAt)
	})

	page := &domain.RunPage{
		Page:  query.Page,
		Size:  query.Size,
		Total: len(matched),
		Items: []domain.RunLogEntry{},
	}
	offset := query.Offset()
	if offset < len(matched) {
		page.Items = matched[offset:min(offset+query.Size, len(matched))]
	}
	return page, nil
}
