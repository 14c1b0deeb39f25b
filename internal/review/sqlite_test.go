package review

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapy-abstraction-server/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "review.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func sampleReview() *Review {
	return &Review{
		PatientID:           "PT-001",
		LineNumber:          1,
		SuggestedRegimen:    "Stupp Protocol",
		SuggestedConfidence: domain.HIGH,
		ReviewerRegimen:     "Stupp Protocol",
		ReviewerAgreed:      true,
		EvidenceSummary:     "Concurrent TMZ with 60 Gy in 30 fractions",
		Notes:               "Clean match",
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rv := sampleReview()
	require.NoError(t, store.Save(ctx, rv))
	assert.NotZero(t, rv.ID)

	got, err := store.Get(ctx, "PT-001", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rv.ID, got.ID)
	assert.Equal(t, "Stupp Protocol", got.SuggestedRegimen)
	assert.Equal(t, domain.HIGH, got.SuggestedConfidence)
	assert.True(t, got.ReviewerAgreed)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "PT-404", 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_SaveUpdatesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rv := sampleReview()
	require.NoError(t, store.Save(ctx, rv))
	firstID := rv.ID

	updated := sampleReview()
	updated.ReviewerRegimen = "Modified Stupp (de-escalated radiation)"
	updated.ReviewerAgreed = false
	updated.Notes = "Radiation dose was 45 Gy, not 60"
	require.NoError(t, store.Save(ctx, updated))

	assert.Equal(t, firstID, updated.ID)

	got, err := store.Get(ctx, "PT-001", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.ReviewerAgreed)
	assert.Equal(t, "Modified Stupp (de-escalated radiation)", got.ReviewerRegimen)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rv := sampleReview()
		rv.LineNumber = i
		require.NoError(t, store.Save(ctx, rv))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rv := sampleReview()
	require.NoError(t, store.Save(ctx, rv))

	require.NoError(t, store.Delete(ctx, rv.ID))

	got, err := store.Get(ctx, "PT-001", 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ExportImportRoundtrip(t *testing.T) {
	source := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		rv := sampleReview()
		rv.LineNumber = i
		require.NoError(t, source.Save(ctx, rv))
	}

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	dest := newTestStore(t)
	imported, skipped, err := dest.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// Re-import skips existing entries
	imported, skipped, err = dest.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)
}

func TestSQLiteStore_UnknownConfidenceFallsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO reviews (
			patient_id, line_number,
			suggested_regimen, suggested_confidence, reviewer_regimen, reviewer_agreed,
			evidence_summary, notes
		) VALUES ('PT-OLD', 1, 'Legacy Regimen', 'VERY_HIGH', 'Legacy Regimen', 1, '', '')
	`)
	require.NoError(t, err)

	got, err := store.Get(ctx, "PT-OLD", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.NO_MATCH, got.SuggestedConfidence)
}
