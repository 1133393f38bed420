package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
)

// Ensure ActService implements the interface.
var _ driving.ActService = (*ActService)(nil)

// ActService manages individual acts.
type ActService struct {
	store driven.ActStore
	now   func() time.Time
}

// NewActService creates a new act service.
func NewActService(store driven.ActStore) *ActService {
	return &ActService{store: store, now: time.Now}
}

// Create stores a single act.
func (s *ActService) Create(ctx context.Context, record domain.ActRecord) (*domain.StoredAct, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	record.PublicationDate = domain.DateOf(record.PublicationDate)

	act := domain.StoredAct{
		ActRecord: record,
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, act); err != nil {
		return nil, err
	}
	return &act, nil
}

// Get retrieves a live act.
func (s *ActService) Get(ctx context.Context, id string) (*domain.StoredAct, error) {
	return s.store.Get(ctx, id)
}

// List returns live acts matching the filter.
func (s *ActService) List(ctx context.Context, filter domain.ActFilter) ([]domain.StoredAct, error) {
	if err := validateRange(filter); err != nil {
		return nil, err
	}
	acts, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if acts == nil {
		acts = []domain.StoredAct{}
	}
	return acts, nil
}

// Update applies the set fields of update to a live act.
func (s *ActService) Update(ctx context.Context, id string, update domain.ActUpdate) (*domain.StoredAct, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrInvalidInput)
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	act, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(&act.ActRecord)
	if err := act.ValidateLoadable(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	act.UpdatedAt = &now

	if err := s.store.Update(ctx, *act); err != nil {
		return nil, err
	}
	return act, nil
}

// Delete soft-deletes a live act.
func (s *ActService) Delete(ctx context.Context, id string) error {
	return s.store.SoftDelete(ctx, id)
}

// Dashboard aggregates live acts.
func (s *ActService) Dashboard(ctx context.Context, filter domain.ActFilter) (*domain.Dashboard, error) {
	if err := validateRange(filter); err != nil {
		return nil, err
	}
	return s.store.Dashboard(ctx, filter)
}

func validateRange(filter domain.ActFilter) error {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return fmt.Errorf("%w: date_from is after date_to", domain.ErrInvalidInput)
	}
	return nil
}
