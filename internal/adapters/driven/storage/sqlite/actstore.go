package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// insertRowsPerStatement bounds one multi-row INSERT well under SQLite's
// bound-parameter limit.
const insertRowsPerStatement = 100

const actColumns = `id, act_type, act_number, issuing_unit, publication_date,
	summary_text, created_at, updated_at, deleted_at`

// actStore implements driven.ActStore.
type actStore struct {
	store *Store
}

var _ driven.ActStore = (*actStore)(nil)

// BeginIngest opens the transaction a whole batch is inserted in.
func (s *actStore) BeginIngest(ctx context.Context) (driven.IngestTx, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ingest: %w", err)
	}
	return &ingestTx{tx: tx}, nil
}

// Create inserts one act. A live act with the same natural key yields
// domain.ErrAlreadyExists.
func (s *actStore) Create(ctx context.Context, act domain.StoredAct) error {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO acts (`+actColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT DO NOTHING
	`, actArgs(act)[:8]...)
	if err != nil {
		return fmt.Errorf("creating act: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("creating act: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Get retrieves a live act by ID.
func (s *actStore) Get(ctx context.Context, id string) (*domain.StoredAct, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+actColumns+` FROM acts WHERE id = ? AND deleted_at IS NULL
	`, id)
	return scanAct(row)
}

// List returns live acts, newest publication first.
func (s *actStore) List(ctx context.Context, filter domain.ActFilter) ([]domain.StoredAct, error) {
	where, args := actWhere(filter, true)
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+actColumns+` FROM acts
		WHERE `+where+`
		ORDER BY publication_date DESC, created_at DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying acts: %w", err)
	}
	defer rows.Close()

	acts := []domain.StoredAct{}
	for rows.Next() {
		act, err := scanAct(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, *act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating acts: %w", err)
	}
	return acts, nil
}

// Update overwrites the mutable fields of a live act.
func (s *actStore) Update(ctx context.Context, act domain.StoredAct) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM acts WHERE id = ? AND deleted_at IS NULL`, act.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("loading act: %w", err)
		}

		key := act.Key()
		err = tx.QueryRowContext(ctx, `
			SELECT 1 FROM acts
			WHERE act_number = ? AND publication_date = ? AND issuing_unit = ?
				AND id <> ? AND deleted_at IS NULL
		`, key.Number, key.Date, key.Unit, act.ID).Scan(&exists)
		if err == nil {
			return domain.ErrAlreadyExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking natural key: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE acts SET act_type = ?, act_number = ?, issuing_unit = ?,
				publication_date = ?, summary_text = ?, updated_at = ?
			WHERE id = ?
		`, act.ActType, act.ActNumber, act.IssuingUnit, key.Date, act.SummaryText,
			formatInstantPtr(act.UpdatedAt), act.ID)
		if err != nil {
			return fmt.Errorf("updating act: %w", err)
		}
		return nil
	})
}

// SoftDelete marks a live act as deleted.
func (s *actStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE acts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, formatInstant(s.store.now()), id)
	if err != nil {
		return fmt.Errorf("deleting act: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting act: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Dashboard aggregates live acts within the filter's date bounds.
// The text search of the filter is ignored.
func (s *actStore) Dashboard(ctx context.Context, filter domain.ActFilter) (*domain.Dashboard, error) {
	where, args := actWhere(filter, false)

	dash := &domain.Dashboard{}
	if err := s.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM acts WHERE `+where, args...).Scan(&dash.Total); err != nil {
		return nil, fmt.Errorf("counting acts: %w", err)
	}

	var err error
	if dash.ByUnit, err = s.countBy(ctx, "issuing_unit", where, args); err != nil {
		return nil, err
	}
	if dash.ByType, err = s.countBy(ctx, "act_type", where, args); err != nil {
		return nil, err
	}
	return dash, nil
}

// countBy groups live acts by a fixed column name.
func (s *actStore) countBy(ctx context.Context, column, where string, args []any) ([]domain.CountBucket, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*) AS n FROM acts
		WHERE `+where+`
		GROUP BY `+column+`
		ORDER BY n DESC, `+column, args...)
	if err != nil {
		return nil, fmt.Errorf("grouping acts by %s: %w", column, err)
	}
	defer rows.Close()

	buckets := []domain.CountBucket{}
	for rows.Next() {
		var b domain.CountBucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("scanning bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// ingestTx inserts chunks inside one database transaction.
type ingestTx struct {
	tx *sql.Tx
}

// InsertIgnoringConflicts inserts acts, skipping natural-key duplicates
// against live rows and earlier rows of the same transaction.
func (t *ingestTx) InsertIgnoringConflicts(ctx context.Context, acts []domain.StoredAct) (int, error) {
	inserted := 0
	for start := 0; start < len(acts); start += insertRowsPerStatement {
		part := acts[start:min(start+insertRowsPerStatement, len(acts))]

		values := make([]string, len(part))
		args := make([]any, 0, len(part)*8)
		for i, a := range part {
			values[i] = placeholders(8)
			args = append(args, actArgs(a)[:8]...)
		}

		res, err := t.tx.ExecContext(ctx, `
			INSERT INTO acts (id, act_type, act_number, issuing_unit, publication_date,
				summary_text, created_at, updated_at)
			VALUES `+strings.Join(values, ", ")+`
			ON CONFLICT DO NOTHING
		`, args...)
		if err != nil {
			return inserted, fmt.Errorf("inserting acts: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("inserting acts: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (t *ingestTx) Commit() error {
	return t.tx.Commit()
}

// Rollback is a no-op once the transaction has ended.
func (t *ingestTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// actWhere builds the live-row predicate for a filter.
func actWhere(filter domain.ActFilter, withSearch bool) (string, []any) {
	clauses := []string{"deleted_at IS NULL"}
	var args []any

	if filter.From != nil {
		clauses = append(clauses, "publication_date >= ?")
		args = append(args, domain.DateOf(*filter.From).Format(domain.DateLayout))
	}
	if filter.To != nil {
		clauses = append(clauses, "publication_date <= ?")
		args = append(args, domain.DateOf(*filter.To).Format(domain.DateLayout))
	}
	if search := strings.TrimSpace(filter.Search); withSearch && search != "" {
		clauses = append(clauses, `(lower(act_type) LIKE ? ESCAPE '\'
			OR lower(act_number) LIKE ? ESCAPE '\'
			OR lower(issuing_unit) LIKE ? ESCAPE '\'
			OR lower(summary_text) LIKE ? ESCAPE '\')`)
		p := likePattern(search)
		args = append(args, p, p, p, p)
	}
	return strings.Join(clauses, " AND "), args
}

// actArgs returns the column values in actColumns order.
func actArgs(a domain.StoredAct) []any {
	return []any{
		a.ID,
		a.ActType,
		a.ActNumber,
		a.IssuingUnit,
		domain.DateOf(a.PublicationDate).Format(domain.DateLayout),
		a.SummaryText,
		formatInstant(a.CreatedAt),
		formatInstantPtr(a.UpdatedAt),
		formatInstantPtr(a.DeletedAt),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAct(row rowScanner) (*domain.StoredAct, error) {
	var act domain.StoredAct
	var date, createdAt string
	var updatedAt, deletedAt sql.NullString

	if err := row.Scan(&act.ID, &act.ActType, &act.ActNumber, &act.IssuingUnit,
		&date, &act.SummaryText, &createdAt, &updatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning act: %w", err)
	}

	d, err := domain.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("scanning act %s: %w", act.ID, err)
	}
	act.PublicationDate = d
	act.CreatedAt = parseInstant(createdAt)
	act.UpdatedAt = parseInstantPtr(updatedAt)
	act.DeletedAt = parseInstantPtr(deletedAt)
	return &act, nil
}
