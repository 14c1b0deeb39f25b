package review

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapy-abstraction-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store, mock
}

var reviewColumns = []string{
	"id", "patient_id", "line_number",
	"suggested_regimen", "suggested_confidence", "reviewer_regimen", "reviewer_agreed",
	"evidence_summary", "notes", "created_at", "updated_at",
}

func TestPostgresStore_RequiresConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_SaveUpsert(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs("PT-001", 1, "Stupp Protocol", "high", "Stupp Protocol", true,
			"Concurrent TMZ with 60 Gy", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	rv := &Review{
		PatientID:           "PT-001",
		LineNumber:          1,
		SuggestedRegimen:    "Stupp Protocol",
		SuggestedConfidence: domain.HIGH,
		ReviewerRegimen:     "Stupp Protocol",
		ReviewerAgreed:      true,
		EvidenceSummary:     "Concurrent TMZ with 60 Gy",
	}
	require.NoError(t, store.Save(ctx, rv))

	assert.Equal(t, int64(7), rv.ID)
	assert.Equal(t, created, rv.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFound(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows(reviewColumns).
		AddRow(int64(3), "PT-002", 2, "FOLFOX", "medium", "FOLFIRI", false,
			"Oxaliplatin discontinued after cycle 2", "switched mid-line", now, now)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs("PT-002", 2).
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "PT-002", 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "FOLFIRI", got.ReviewerRegimen)
	assert.Equal(t, domain.MEDIUM, got.SuggestedConfidence)
	assert.False(t, got.ReviewerAgreed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs("PT-404", 9).
		WillReturnError(sql.ErrNoRows)

	got, err := store.Get(context.Background(), "PT-404", 9)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows(reviewColumns).
		AddRow(int64(2), "PT-002", 1, "Nivolumab monotherapy", "low", "Nivolumab monotherapy", true, "", "", now, now).
		AddRow(int64(1), "PT-001", 1, "Stupp Protocol", "high", "Stupp Protocol", true, "", "", now, now)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs(50, 0).
		WillReturnRows(rows)

	all, err := store.List(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "PT-002", all[0].PatientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reviews").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM reviews WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
