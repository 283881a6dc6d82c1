package feedback

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// createTestStore creates a SQLite store in a temp directory.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func truncatingReview() *Feedback {
	return &Feedback{
		Variant:               "VHL:c.263G>A",
		NormalizedHGVS:        "NM_000551.4:c.263G>A",
		EngineClassification:  domain.VUS,
		CuratorClassification: domain.LIKELY_PATHOGENIC,
		Agreed:                false,
		AppliedCodes:          []string{"PVS1", "PM2_Supporting"},
		TablesVersion:         "VHL-VCEP-1.0",
		Notes:                 "PS4 from published families not scored by the engine",
	}
}

func missenseReview() *Feedback {
	return &Feedback{
		Variant:               "NM_000551.4:c.194C>G",
		NormalizedHGVS:        "NM_000551.4:c.194C>G",
		EngineClassification:  domain.LIKELY_PATHOGENIC,
		CuratorClassification: domain.LIKELY_PATHOGENIC,
		Agreed:                true,
		AppliedCodes:          []string{"PS1", "PM1", "PM2_Supporting"},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "feedback.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	defer store.Close()
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestNewSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, createTestStore(t))
}

func TestSQLiteStore_SaveRejectsInvalidReview(t *testing.T) {
	store := createTestStore(t)

	fb := truncatingReview()
	fb.CuratorClassification = "Probably Bad"
	err := store.Save(context.Background(), fb)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "curator_classification", verr.Field)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	fb = truncatingReview()
	fb.NormalizedHGVS = "  "
	assert.Error(t, store.Save(context.Background(), fb))
}

func TestSQLiteStore_ExportImportRoundTrip(t *testing.T) {
	source := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, source.Save(ctx, truncatingReview()))
	require.NoError(t, source.Save(ctx, missenseReview()))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	target := createTestStore(t)
	require.NoError(t, target.Save(ctx, missenseReview()))

	imported, skipped, err := target.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped, "existing review is kept")

	got, err := target.Get(ctx, "NM_000551.4:c.263G>A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.LIKELY_PATHOGENIC, got.CuratorClassification)
	assert.Equal(t, []string{"PVS1", "PM2_Supporting"}, got.AppliedCodes)
}

func TestSQLiteStore_ImportJSON_Invalid(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	_, _, err := store.ImportJSON(ctx, strings.NewReader("{not json"))
	assert.Error(t, err)

	doc := `{"version":"1.0","feedback":[
		{"normalized_hgvs":"NM_000551.4:c.1A>G","engine_classification":"Uncertain Significance","curator_classification":"Uncertain Significance","agreed":true},
		{"normalized_hgvs":"NM_000551.4:c.2T>C","engine_classification":"Uncertain Significance","curator_classification":"Maybe"}
	]}`
	imported, skipped, err := store.ImportJSON(ctx, strings.NewReader(doc))
	require.Error(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 0, skipped)
}

func TestSQLiteStore_QueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS feedback").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLiteStoreWithDB(db)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM feedback WHERE normalized_hgvs").
		WithArgs("NM_000551.4:c.263G>A").
		WillReturnError(errors.New("database is locked"))
	_, err = store.Get(ctx, "NM_000551.4:c.263G>A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("disk I/O error"))
	_, err = store.Count(ctx)
	assert.Error(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, created_at FROM feedback").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()
	err = store.Save(ctx, truncatingReview())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check existing")

	mock.ExpectQuery("SELECT (.+) FROM feedback ORDER BY").WillReturnError(errors.New("disk I/O error"))
	var buf bytes.Buffer
	assert.Error(t, store.ExportJSON(ctx, &buf))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_SchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only database"))
	_, err = NewSQLiteStoreWithDB(db)
	assert.Error(t, err)
}

func TestFromReport(t *testing.T) {
	report := &domain.ClassificationReport{
		Variant: domain.VariantDescriptor{
			Input:      "VHL:c.263G>A",
			Transcript: "NM_000551.4",
			CDNAChange: "c.263G>A",
		},
		Verdict: domain.ClassificationVerdict{
			Label: domain.VUS,
			Contributing: []domain.EvidenceResult{
				{Code: domain.PVS1, Strength: domain.VERY_STRONG, Justification: "nonsense"},
				{Code: domain.PM2_SUPPORTING, Strength: domain.SUPPORTING, Justification: "absent"},
			},
		},
		Tables: "VHL-VCEP-1.0",
	}

	fb := FromReport(report, domain.VUS, "agree")
	assert.Equal(t, "NM_000551.4:c.263G>A", fb.NormalizedHGVS)
	assert.Equal(t, "VHL:c.263G>A", fb.Variant)
	assert.True(t, fb.Agreed)
	assert.Equal(t, []string{"PVS1", "PM2_Supporting"}, fb.AppliedCodes)
	assert.Equal(t, "VHL-VCEP-1.0", fb.TablesVersion)
	assert.NoError(t, fb.Validate())

	fb = FromReport(report, domain.LIKELY_PATHOGENIC, "")
	assert.False(t, fb.Agreed)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(domain.FeedbackConfig{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewStore(domain.FeedbackConfig{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "fb.db")})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.IsType(t, &SQLiteStore{}, store)
	assert.NoError(t, store.Close())

	_, err = NewStore(domain.FeedbackConfig{Driver: "mongo"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// runStoreContract exercises the behavior every Store implementation shares.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// Save assigns ID and timestamps
	first := truncatingReview()
	require.NoError(t, store.Save(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.False(t, first.UpdatedAt.IsZero())

	got, err := store.Get(ctx, first.NormalizedHGVS)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "VHL:c.263G>A", got.Variant)
	assert.Equal(t, domain.VUS, got.EngineClassification)
	assert.Equal(t, domain.LIKELY_PATHOGENIC, got.CuratorClassification)
	assert.False(t, got.Agreed)
	assert.Equal(t, []string{"PVS1", "PM2_Supporting"}, got.AppliedCodes)
	assert.Equal(t, "VHL-VCEP-1.0", got.TablesVersion)

	// Saving the same variant replaces the review in place
	update := truncatingReview()
	update.CuratorClassification = domain.VUS
	update.Agreed = true
	update.Notes = "family data withdrawn"
	require.NoError(t, store.Save(ctx, update))
	assert.Equal(t, first.ID, update.ID)

	got, err = store.Get(ctx, first.NormalizedHGVS)
	require.NoError(t, err)
	assert.Equal(t, domain.VUS, got.CuratorClassification)
	assert.True(t, got.Agreed)
	assert.Equal(t, "family data withdrawn", got.Notes)

	// Missing variant yields nil without error
	missing, err := store.Get(ctx, "NM_000551.4:c.1A>G")
	require.NoError(t, err)
	assert.Nil(t, missing)

	second := missenseReview()
	require.NoError(t, store.Save(ctx, second))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := store.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Delete removes only the named review
	require.NoError(t, store.Delete(ctx, second.ID))
	gone, err := store.Get(ctx, second.NormalizedHGVS)
	require.NoError(t, err)
	assert.Nil(t, gone)

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
