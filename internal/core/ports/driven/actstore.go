package driven

import (
	"context"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// ActStore persists regulatory acts.
// Every read and aggregate path excludes soft-deleted acts.
type ActStore interface {
	// BeginIngest opens the transaction a batch ingest runs in.
	BeginIngest(ctx context.Context) (IngestTx, error)

	// Create inserts a single act.
	// Returns domain.ErrAlreadyExists if a live act holds the same natural key.
	Create(ctx context.Context, act domain.StoredAct) error

	// Get retrieves a live act by ID.
	// Returns domain.ErrNotFound if it does not exist or was deleted.
	Get(ctx context.Context, id string) (*domain.StoredAct, error)

	// List returns live acts matching the filter, newest publication first.
	List(ctx context.Context, filter domain.ActFilter) ([]domain.StoredAct, error)

	// Update overwrites the mutable fields and UpdatedAt of a live act.
	// Returns domain.ErrNotFound or domain.ErrAlreadyExists.
	Update(ctx context.Context, act domain.StoredAct) error

	// SoftDelete sets DeletedAt on a live act.
	// Returns domain.ErrNotFound if there is no live act with that ID.
	SoftDelete(ctx context.Context, id string) error

	// Dashboard aggregates live acts matching the filter's date bounds.
	Dashboard(ctx context.Context, filter domain.ActFilter) (*domain.Dashboard, error)
}

// IngestTx is one ingest transaction.
// Nothing inserted through it is visible to other readers until Commit.
type IngestTx interface {
	// InsertIgnoringConflicts inserts the acts and silently skips any whose
	// natural key already belongs to a live act, including earlier acts in
	// the same call. Returns the number of rows actually inserted.
	InsertIgnoringConflicts(ctx context.Context, acts []domain.StoredAct) (int, error)

	// Commit makes every insert durable.
	Commit() error

	// Rollback discards every insert. Safe to call after Commit.
	Rollback() error
}
