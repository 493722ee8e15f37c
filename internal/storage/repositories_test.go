package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = NewMigrationManager(db).Apply(context.Background())
	require.NoError(t, err)
	return db
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }
func int64Ptr(i int64) *int64   { return &i }

func sampleComplex() *CanonicalComplex {
	return &CanonicalComplex{
		ComplexCode:       "APT-test-0001",
		Name:              "래미안 원베일리",
		NameVariations:    []string{"래미안 원베일리", "래미안원베일리"},
		Latitude:          f64Ptr(37.5066),
		Longitude:         f64Ptr(127.0037),
		AddressJibun:      strPtr("서울특별시 서초구 반포동 810"),
		AddressNormalized: "서울특별시 서초구 반포동 810",
		Sigungu:           strPtr("서초구"),
		CompletionYear:    intPtr(2023),
		DataSources:       []string{"naver"},
		ConfidenceScore:   1.0,
	}
}

func TestMigrationManager_ApplyIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	mgr := NewMigrationManager(db)
	applied, err := mgr.Apply(context.Background())
	require.NoError(t, err)
	assert.Greater(t, applied, 0)

	applied, err = mgr.Apply(context.Background())
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestComplexRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewComplexRepository(openTestDB(t))

	complex := sampleComplex()
	require.NoError(t, repo.Create(ctx, complex))
	require.NotEqual(t, uuid.Nil, complex.ID)

	got, err := repo.GetByID(ctx, complex.ID)
	require.NoError(t, err)
	assert.Equal(t, complex.Name, got.Name)
	assert.Equal(t, complex.NameVariations, got.NameVariations)
	assert.Equal(t, complex.DataSources, got.DataSources)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 37.5066, *got.Latitude, 1e-9)
}

func TestComplexRepository_GetByID_NotFound(t *testing.T) {
	repo := NewComplexRepository(openTestDB(t))
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplexRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewComplexRepository(openTestDB(t))

	complex := sampleComplex()
	require.NoError(t, repo.Create(ctx, complex))

	complex.TotalHouseholds = intPtr(2990)
	complex.DataSources = append(complex.DataSources, "molit")
	require.NoError(t, repo.Update(ctx, complex))

	got, err := repo.GetByID(ctx, complex.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TotalHouseholds)
	assert.Equal(t, 2990, *got.TotalHouseholds)
	assert.Equal(t, []string{"naver", "molit"}, got.DataSources)
}

func TestComplexRepository_Update_NotFound(t *testing.T) {
	repo := NewComplexRepository(openTestDB(t))
	complex := sampleComplex()
	complex.ID = uuid.New()
	assert.ErrorIs(t, repo.Update(context.Background(), complex), ErrNotFound)
}

func TestListingRepository_CreateAndCount(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	complexRepo := NewComplexRepository(db)
	listingRepo := NewListingRepository(db)

	complex := sampleComplex()
	require.NoError(t, complexRepo.Create(ctx, complex))

	listing := &Listing{
		ComplexID:     complex.ID,
		DealType:      "sale",
		PriceSale:     int64Ptr(420000),
		AreaExclusive: f64Ptr(84.97),
		FloorCurrent:  intPtr(12),
		Status:        ListingStatusActive,
		CrawledAt:     time.Now().UTC(),
	}
	require.NoError(t, listingRepo.Create(ctx, listing))

	count, err := listingRepo.CountByComplex(ctx, complex.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTransactionRepository_ExistsByOrigin(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	complexRepo := NewComplexRepository(db)
	txRepo := NewTransactionRepository(db)

	complex := sampleComplex()
	require.NoError(t, complexRepo.Create(ctx, complex))

	exists, err := txRepo.ExistsByOrigin(ctx, "molit", "t-1")
	require.NoError(t, err)
	assert.False(t, exists)

	record := &TransactionRecord{
		ComplexID:        complex.ID,
		DealType:         "sale",
		DealDate:         time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		DealAmount:       int64Ptr(410000),
		DataSource:       "molit",
		OriginalRecordID: "t-1",
	}
	require.NoError(t, txRepo.Create(ctx, record))

	exists, err = txRepo.ExistsByOrigin(ctx, "molit", "t-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSourceMappingRepository_UniquePerSourcePair(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	complexRepo := NewComplexRepository(db)
	mappingRepo := NewSourceMappingRepository(db)

	complex := sampleComplex()
	require.NoError(t, complexRepo.Create(ctx, complex))

	mapping := &SourceMapping{ComplexID: complex.ID, SourceType: "naver", SourceID: "n-1"}
	require.NoError(t, mappingRepo.Create(ctx, mapping))

	// Second insert for the same pair violates the unique constraint.
	assert.Error(t, mappingRepo.Create(ctx, &SourceMapping{
		ComplexID: complex.ID, SourceType: "naver", SourceID: "n-1",
	}))

	got, err := mappingRepo.Get(ctx, "naver", "n-1")
	require.NoError(t, err)
	assert.Equal(t, complex.ID, got.ComplexID)

	_, err = mappingRepo.Get(ctx, "naver", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSourceMappingRepository_ListByType(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	complexRepo := NewComplexRepository(db)
	mappingRepo := NewSourceMappingRepository(db)

	complex := sampleComplex()
	require.NoError(t, complexRepo.Create(ctx, complex))

	for _, pair := range []struct{ sourceType, sourceID string }{
		{"naver", "n-1"},
		{"naver", "n-2"},
		{"molit", "m-1"},
	} {
		require.NoError(t, mappingRepo.Create(ctx, &SourceMapping{
			ComplexID: complex.ID, SourceType: pair.sourceType, SourceID: pair.sourceID,
		}))
	}

	mappings, err := mappingRepo.ListByType(ctx, "naver")
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	for _, mapping := range mappings {
		assert.Equal(t, "naver", mapping.SourceType)
		assert.Equal(t, complex.ID, mapping.ComplexID)
	}

	mappings, err = mappingRepo.ListByType(ctx, "zigbang")
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestRunRepository_CreateAndComplete(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t))

	run := &IntegrationRun{Status: RunStatusRunning}
	require.NoError(t, repo.Create(ctx, run))

	run.Status = RunStatusSucceeded
	run.Report = []byte(`{"ok":true}`)
	run.ErrorCount = 0
	require.NoError(t, repo.Complete(ctx, run))
	require.NotNil(t, run.CompletedAt)
}
