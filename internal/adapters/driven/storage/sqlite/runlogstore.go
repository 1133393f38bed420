package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// runLogStore implements driven.RunLogStore.
type runLogStore struct {
	store *Store
}

var _ driven.RunLogStore = (*runLogStore)(nil)

// Record appends one entry. Entries are never updated.
func (s *runLogStore) Record(ctx context.Context, entry domain.RunLogEntry) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO run_logs (id, executed_at, records_persisted, status, error_message, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, formatInstant(entry.ExecutedAt), entry.RecordsPersisted,
		string(entry.Status), nullString(entry.ErrorMessage), entry.DurationSeconds)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// List returns one page of entries, newest first.
func (s *runLogStore) List(ctx context.Context, query domain.RunQuery) (*domain.RunPage, error) {
	var clauses []string
	var args []any
	if query.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(query.Status))
	}
	start, end := query.Window()
	if start != nil {
		clauses = append(clauses, "executed_at >= ?")
		args = append(args, formatInstant(*start))
	}
	if end != nil {
		clauses = append(clauses, "executed_at < ?")
		args = append(args, formatInstant(*end))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	page := &domain.RunPage{Page: query.Page, Size: query.Size, Items: []domain.RunLogEntry{}}
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM run_logs "+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, executed_at, records_persisted, status, error_message, duration_seconds
		FROM run_logs `+where+`
		ORDER BY executed_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, query.Size, query.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.RunLogEntry
		var executedAt, status string
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &executedAt, &e.RecordsPersisted, &status,
			&errMsg, &e.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		e.ExecutedAt = parseInstant(executedAt)
		e.Status = domain.RunStatus(status)
		e.ErrorMessage = errMsg.String
		page.Items = append(page.Items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return page, nil
}
