package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/actharvest/internal/core/domain"
)

var actRowColumns = []string{
	"id", "act_type", "act_number", "issuing_unit", "publication_date",
	"summary_text", "created_at", "updated_at", "deleted_at",
}

func setupMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	store := New(db)
	store.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func testAct(id, number string) domain.StoredAct {
	return domain.StoredAct{
		ActRecord: domain.ActRecord{
			ActType:         "Portaria",
			ActNumber:       number,
			IssuingUnit:     "RFB",
			PublicationDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			SummaryText:     "ementa",
		},
		ID:        id,
		CreatedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestEnsureSchema(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS acts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(context.Background()))

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	err := store.EnsureSchema(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestIngest_InsertsChunkAndCommits(t *testing.T) {
	store, mock := setupMock(t)
	ctx := context.Background()
	a, b := testAct("a", "1"), testAct("b", "2")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO acts (id, act_type, act_number, issuing_unit, publication_date, summary_text, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7), ($8, $9, $10, $11, $12, $13, $14) ON CONFLICT DO NOTHING")).
		WithArgs("a", "Portaria", "1", "RFB", a.PublicationDate, "ementa", a.CreatedAt,
			"b", "Portaria", "2", "RFB", b.PublicationDate, "ementa", b.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.ActStore().BeginIngest(ctx)
	require.NoError(t, err)
	n, err := tx.InsertIgnoringConflicts(ctx, []domain.StoredAct{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rows skipped by ON CONFLICT are not counted")
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback(), "rollback after commit is a no-op")
}

func TestIngest_FailureRollsBack(t *testing.T) {
	store, mock := setupMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO acts").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	tx, err := store.ActStore().BeginIngest(ctx)
	require.NoError(t, err)
	_, err = tx.InsertIgnoringConflicts(ctx, []domain.StoredAct{testAct("a", "1")})
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, tx.Rollback())
}

func TestIngest_SplitsLargeChunks(t *testing.T) {
	store, mock := setupMock(t)
	ctx := context.Background()

	acts := make([]domain.StoredAct, insertRowsPerStatement+3)
	for i := range acts {
		acts[i] = testAct(fmt.Sprint(i), fmt.Sprint(i))
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO acts").WillReturnResult(sqlmock.NewResult(0, int64(insertRowsPerStatement)))
	mock.ExpectExec("INSERT INTO acts").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	tx, err := store.ActStore().BeginIngest(ctx)
	require.NoError(t, err)
	n, err := tx.InsertIgnoringConflicts(ctx, acts)
	require.NoError(t, err)
	assert.Equal(t, insertRowsPerStatement+3, n)
	require.NoError(t, tx.Commit())
}

func TestCreate(t *testing.T) {
	store, mock := setupMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO acts")).
		WithArgs("a", "Portaria", "1", "RFB", sqlmock.AnyArg(), "ementa", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.ActStore().Create(ctx, testAct("a", "1")))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO acts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.ActStore().Create(ctx, testAct("b", "1")), domain.ErrAlreadyExists)
}

func TestGet(t *testing.T) {
	store, mock := setupMock(t)
	ctx := context.Background()
	query := regexp.QuoteMeta("FROM acts WHERE id = $1 AND deleted_at IS NULL")

	updated := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(query).WithArgs("a").WillReturnRows(sqlmock.NewRows(actRowColumns).
		AddRow("a", "Portaria", "1", "RFB", time.Date(2024, 3, 1, 0, 0, 0, 0, time.FixedZone("", 0)),
			"ementa", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), updated, nil))

	act, err := store.ActStore().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", act.ActNumber)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), act.PublicationDate)
	require.NotNil(t, act.UpdatedAt)
	assert.True(t, updated.Equal(*act.UpdatedAt))
	assert.Nil(t, act.DeletedAt)

	mock.ExpectQuery(query).WithArgs("gone").WillReturnRows(sqlmock.NewRows(actRowColumns))
	_, err = store.ActStore().Get(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_BuildsFilter(t *testing.T) {
	store, mock := setupMock(t)
	from := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE deleted_at IS NULL AND publication_date >= $1 AND publication_date <= $2 AND (act_type ILIKE $3")).
		WithArgs(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), to, `%10\%%`).
		WillReturnRows(sqlmock.NewRows(actRowColumns))

	acts, err := store.ActStore().List(context.Background(),
		domain.ActFilter{From: &from, To: &to, Search: " 10% "})
	require.NoError(t, err)
	assert.NotNil(t, acts)
	assert.Empty(t, acts)
}

func TestList_OrdersNewestFirst(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY publication_date DESC, created_at DESC")).
		WillReturnRows(sqlmock.NewRows(actRowColumns).
			AddRow("b", "Portaria", "2", "RFB", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), "", time.Now(), nil, nil).
			AddRow("a", "Portaria", "1", "RFB", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "", time.Now(), nil, nil))

	acts, err := store.ActStore().List(context.Background(), domain.ActFilter{})
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "b", acts[0].ID)
}

func TestUpdate(t *testing.T) {
	store, mock := setupMock(t)
	ctx := context.Background()
	act := testAct("a", "1")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE acts SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.ActStore().Update(ctx, act))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE acts SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.ActStore().Update(ctx, act), domain.ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE acts SET")).
		WillReturnError(&pq.Error{Code: uniqueViolation, Message: "duplicate key value"})
	assert.ErrorIs(t, store.ActStore().Update(ctx, act), domain.ErrAlreadyExists)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE acts SET")).WillReturnError(sql.ErrConnDone)
	err := store.ActStore().Update(ctx, act)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSoftDelete(t *testing.T) {
	store, mock := setupMock(t)
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE acts SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL")

	mock.ExpectExec(query).WithArgs(store.now(), "a").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.ActStore().SoftDelete(ctx, "a"))

	mock.ExpectExec(query).WithArgs(store.now(), "a").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.ActStore().SoftDelete(ctx, "a"), domain.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	store, mock := setupMock(t)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM acts WHERE deleted_at IS NULL AND publication_date <= $1")).
		WithArgs(to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY issuing_unit ORDER BY n DESC, issuing_unit")).
		WithArgs(to).
		WillReturnRows(sqlmock.NewRows([]string{"issuing_unit", "n"}).AddRow("RFB", 2).AddRow("COSIT", 1))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY act_type ORDER BY n DESC, act_type")).
		WithArgs(to).
		WillReturnRows(sqlmock.NewRows([]string{"act_type", "n"}).AddRow("Portaria", 3))

	dash, err := store.ActStore().Dashboard(context.Background(), domain.ActFilter{To: &to, Search: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, 3, dash.Total)
	assert.Equal(t, []domain.CountBucket{{Key: "RFB", Count: 2}, {Key: "COSIT", Count: 1}}, dash.ByUnit)
	assert.Equal(t, []domain.CountBucket{{Key: "Portaria", Count: 3}}, dash.ByType)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: uniqueViolation})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.False(t, isUniqueViolation(nil))
}
