package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// insertRowsPerStatement keeps one INSERT far below the protocol's
// 65535 bind-parameter limit.
const insertRowsPerStatement = 500

const actColumns = "id, act_type, act_number, issuing_unit, publication_date, summary_text, created_at, updated_at, deleted_at"

type actStore struct {
	store *Store
}

var _ driven.ActStore = (*actStore)(nil)

func (s *actStore) BeginIngest(ctx context.Context) (driven.IngestTx, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ingest: %w", err)
	}
	return &ingestTx{tx: tx}, nil
}

func (s *actStore) Create(ctx context.Context, act domain.StoredAct) error {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO acts (id, act_type, act_number, issuing_unit, publication_date, summary_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING`,
		act.ID, act.ActType, act.ActNumber, act.IssuingUnit,
		domain.DateOf(act.PublicationDate), act.SummaryText, act.CreatedAt.UTC())
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

func (s *actStore) Get(ctx context.Context, id string) (*domain.StoredAct, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+actColumns+" FROM acts WHERE id = $1 AND deleted_at IS NULL", id)
	return scanAct(row)
}

func (s *actStore) List(ctx context.Context, filter domain.ActFilter) ([]domain.StoredAct, error) {
	p := &params{}
	where := actWhere(p, filter, true)
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+actColumns+" FROM acts WHERE "+where+
			" ORDER BY publication_date DESC, created_at DESC", p.values...)
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

// Update relies on the partial unique index to reject key collisions.
func (s *actStore) Update(ctx context.Context, act domain.StoredAct) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE acts SET act_type = $1, act_number = $2, issuing_unit = $3,
			publication_date = $4, summary_text = $5, updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL`,
		act.ActType, act.ActNumber, act.IssuingUnit, domain.DateOf(act.PublicationDate),
		act.SummaryText, nullTimePtr(act.UpdatedAt), act.ID)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("updating act: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating act: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *actStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE acts SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		s.store.now().UTC(), id)
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

// Dashboard ignores the filter's text search.
func (s *actStore) Dashboard(ctx context.Context, filter domain.ActFilter) (*domain.Dashboard, error) {
	p := &params{}
	where := actWhere(p, filter, false)

	dash := &domain.Dashboard{}
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM acts WHERE "+where, p.values...).Scan(&dash.Total); err != nil {
		return nil, fmt.Errorf("counting acts: %w", err)
	}

	var err error
	if dash.ByUnit, err = s.countBy(ctx, "issuing_unit", where, p.values); err != nil {
		return nil, err
	}
	if dash.ByType, err = s.countBy(ctx, "act_type", where, p.values); err != nil {
		return nil, err
	}
	return dash, nil
}

func (s *actStore) countBy(ctx context.Context, column, where string, args []any) ([]domain.CountBucket, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) AS n FROM acts WHERE "+where+
			" GROUP BY "+column+" ORDER BY n DESC, "+column, args...)
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

type ingestTx struct {
	tx *sql.Tx
}

func (t *ingestTx) InsertIgnoringConflicts(ctx context.Context, acts []domain.StoredAct) (int, error) {
	inserted := 0
	for start := 0; start < len(acts); start += insertRowsPerStatement {
		part := acts[start:min(start+insertRowsPerStatement, len(acts))]

		p := &params{}
		values := make([]string, len(part))
		for i, a := range part {
			values[i] = "(" + strings.Join([]string{
				p.add(a.ID), p.add(a.ActType), p.add(a.ActNumber), p.add(a.IssuingUnit),
				p.add(domain.DateOf(a.PublicationDate)), p.add(a.SummaryText), p.add(a.CreatedAt.UTC()),
			}, ", ") + ")"
		}

		res, err := t.tx.ExecContext(ctx,
			"INSERT INTO acts (id, act_type, act_number, issuing_unit, publication_date, summary_text, created_at) VALUES "+
				strings.Join(values, ", ")+" ON CONFLICT DO NOTHING", p.values...)
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

func (t *ingestTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// actWhere builds the live-row predicate, registering its arguments in p.
func actWhere(p *params, filter domain.ActFilter, withSearch bool) string {
	clauses := []string{"deleted_at IS NULL"}
	if filter.From != nil {
		clauses = append(clauses, "publication_date >= "+p.add(domain.DateOf(*filter.From)))
	}
	if filter.To != nil {
		clauses = append(clauses, "publication_date <= "+p.add(domain.DateOf(*filter.To)))
	}
	if search := strings.TrimSpace(filter.Search); withSearch && search != "" {
		m := p.add("%" + escapeLike(search) + "%")
		clauses = append(clauses, "(act_type ILIKE "+m+" OR act_number ILIKE "+m+
			" OR issuing_unit ILIKE "+m+" OR summary_text ILIKE "+m+")")
	}
	return strings.Join(clauses, " AND ")
}

// escapeLike escapes LIKE wildcards with the default backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAct(row rowScanner) (*domain.StoredAct, error) {
	var act domain.StoredAct
	var updatedAt, deletedAt sql.NullTime

	if err := row.Scan(&act.ID, &act.ActType, &act.ActNumber, &act.IssuingUnit,
		&act.PublicationDate, &act.SummaryText, &act.CreatedAt, &updatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning act: %w", err)
	}

	act.PublicationDate = domain.DateOf(act.PublicationDate)
	act.CreatedAt = act.CreatedAt.UTC()
	act.UpdatedAt = timePtr(updatedAt)
	act.DeletedAt = timePtr(deletedAt)
	return &act, nil
}
