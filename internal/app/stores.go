package app

import (
	"context"
	"fmt"

	"github.com/custodia-labs/actharvest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/actharvest/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/actharvest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// Stores is the persistence backend selected by storage.driver.
type Stores struct {
	Acts driven.ActStore
	Runs driven.RunLogStore
	Jobs driven.JobStore

	close func() error
}

// OpenStores opens the configured backend.
func OpenStores(ctx context.Context, s domain.StorageSettings) (*Stores, error) {
	switch s.Driver {
	case domain.StorageMemory:
		logger.Warn("storage: using in-memory stores; nothing survives a restart")
		return &Stores{
			Acts:  memory.NewActStore(),
			Runs:  memory.NewRunLogStore(),
			Jobs:  memory.NewJobStore(),
			close: func() error { return nil },
		}, nil

	case domain.StoragePostgres:
		store, err := postgres.Open(ctx, s.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Stores{
			Acts:  store.ActStore(),
			Runs:  store.RunLogStore(),
			Jobs:  store.JobStore(),
			close: store.Close,
		}, nil

	case domain.StorageSQLite, "":
		store, err := sqlite.NewStore(s.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Debug("storage: sqlite at %s", store.Path())
		return &Stores{
			Acts:  store.ActStore(),
			Runs:  store.RunLogStore(),
			Jobs:  store.JobStore(),
			close: store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidInput, s.Driver)
	}
}

// Close releases the backend.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
