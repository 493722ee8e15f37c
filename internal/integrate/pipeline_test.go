package integrate

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danjilab/integration-engine/internal/cache"
	"github.com/danjilab/integration-engine/internal/observability"
	"github.com/danjilab/integration-engine/internal/quality"
	"github.com/danjilab/integration-engine/internal/source"
	"github.com/danjilab/integration-engine/internal/storage"
	"github.com/danjilab/integration-engine/internal/validate"
)

type fakeListingFeed struct {
	complexes []source.ComplexRecord
	listings  []source.ListingRecord
}

func (f *fakeListingFeed) Complexes(ctx context.Context) ([]source.ComplexRecord, error) {
	return f.complexes, nil
}
func (f *fakeListingFeed) Listings(ctx context.Context) ([]source.ListingRecord, error) {
	return f.listings, nil
}
func (f *fakeListingFeed) SourceType() string { return "naver" }

type fakeTransactionFeed struct {
	transactions []source.TransactionRecord
}

func (f *fakeTransactionFeed) Transactions(ctx context.Context) ([]source.TransactionRecord, error) {
	return f.transactions, nil
}
func (f *fakeTransactionFeed) SourceType() string { return "molit" }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = storage.NewMigrationManager(db).Apply(context.Background())
	require.NoError(t, err)
	return db
}

func feedFixtures() (*fakeListingFeed, *fakeTransactionFeed) {
	listingFeed := &fakeListingFeed{
		complexes: []source.ComplexRecord{
			{
				SourceID:        "n-1",
				Name:            "래미안 원베일리",
				Address:         "서울특별시 서초구 반포동 810",
				Latitude:        "37.5066",
				Longitude:       "127.0037",
				CompletionYear:  "2023",
				TotalHouseholds: "2990",
			},
			{
				SourceID:  "n-2",
				Name:      "힐스테이트 삼성",
				Address:   "서울특별시 강남구 삼성동 100",
				Latitude:  "37.5100",
				Longitude: "127.0560",
			},
			{
				// Same building as n-1, slightly different coordinates and name.
				SourceID:  "n-3",
				Name:      "래미안원베일리",
				Address:   "서울특별시 서초구 반포동 810-1",
				Latitude:  "37.50665",
				Longitude: "127.00375",
			},
		},
		listings: []source.ListingRecord{
			{
				SourceID:        "l-1",
				ComplexSourceID: "n-1",
				DealType:        "매매",
				PriceSale:       "420,000",
				AreaExclusive:   "84.97",
				FloorText:       "12/25",
				CrawledAt:       "2026-08-01T09:00:00Z",
			},
			{
				SourceID:        "l-2",
				ComplexSourceID: "unknown-9",
				DealType:        "전세",
				Deposit:         "90,000",
				AreaExclusive:   "59.9",
				FloorText:       "5층",
				CrawledAt:       "2026-08-01T09:00:00Z",
			},
		},
	}
	transactionFeed := &fakeTransactionFeed{
		transactions: []source.TransactionRecord{
			{
				SourceID:      "t-1",
				RegionName:    "서울특별시 서초구",
				ApartmentName: "래미안 원베일리",
				DealType:      "매매",
				DealYear:      "2026",
				DealMonth:     "6",
				DealDay:       "15",
				DealAmount:    "410,000",
				AreaExclusive: "84.97",
				FloorText:     "15층",
			},
			{
				SourceID:      "t-2",
				RegionName:    "부산광역시 해운대구",
				ApartmentName: "존재하지않는단지",
				DealType:      "매매",
				DealYear:      "2026",
				DealMonth:     "5",
				DealDay:       "1",
				DealAmount:    "90,000",
				AreaExclusive: "59.9",
				FloorText:     "3층",
			},
		},
	}
	return listingFeed, transactionFeed
}

func newTestPipeline(db *sql.DB, mappingCache cache.Client) (*Pipeline, *storage.Repositories) {
	listingFeed, transactionFeed := feedFixtures()
	repos := storage.NewRepositories(db)
	pipeline := NewPipeline(Deps{
		Repos:           repos,
		ListingFeed:     listingFeed,
		TransactionFeed: transactionFeed,
		Validator:       validate.NewValidator(validate.Config{UnknownNameSentinel: "정보없음"}),
		Cache:           mappingCache,
		Logger:          observability.NopLogger(),
		Auditor:         quality.NewAuditor(db),
	})
	return pipeline, repos
}

func TestPipeline_Run_IntegratesFeeds(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	pipeline, repos := newTestPipeline(db, cache.NewMemory())

	report, err := pipeline.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)

	// n-1 and n-2 create canonical rows; n-3 merges into n-1 by coordinate.
	assert.Equal(t, 3, report.Complexes.Processed)
	assert.Equal(t, 2, report.Complexes.Created)
	assert.Equal(t, 1, report.Complexes.Matched)
	assert.Equal(t, 1, report.Complexes.Merged)
	assert.Equal(t, 1, report.Complexes.MatchedBy["coordinate"])

	assert.Equal(t, 2, report.Listings.Processed)
	assert.Equal(t, 1, report.Listings.Matched)
	assert.Equal(t, 1, report.Listings.Orphaned)

	assert.Equal(t, 2, report.Transactions.Processed)
	assert.Equal(t, 1, report.Transactions.Matched)
	assert.Equal(t, 1, report.Transactions.Orphaned)

	assert.Equal(t, string(storage.RunStatusSucceeded), report.Status)
	assert.Empty(t, report.Errors)

	complexes, err := repos.Complexes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, complexes, 2)

	// Merged complex carries the variation from the second sighting.
	var merged *storage.CanonicalComplex
	for _, c := range complexes {
		if c.Name == "래미안 원베일리" {
			merged = c
		}
	}
	require.NotNil(t, merged)
	assert.Contains(t, merged.NameVariations, "래미안원베일리")
}

func TestPipeline_Run_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first, repos := newTestPipeline(db, cache.NewMemory())
	firstReport, err := first.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, firstReport.Complexes.Created)

	// Fresh pipeline and empty cache: idempotence must come from the stored
	// mappings, not from process state.
	second, _ := newTestPipeline(db, cache.NewMemory())
	secondReport, err := second.Run(ctx)
	require.NoError(t, err)

	assert.Zero(t, secondReport.Complexes.Created)
	assert.Zero(t, secondReport.Complexes.Merged)
	assert.Equal(t, 3, secondReport.Complexes.Remapped)
	assert.Equal(t, 3, secondReport.Complexes.Matched)

	complexes, err := repos.Complexes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, complexes, 2)

	// Transactions keyed by origin are not duplicated either.
	assert.Zero(t, secondReport.Transactions.Matched)
	assert.Equal(t, 1, secondReport.Transactions.Dropped)
}

func TestPipeline_Run_WarmsMappingCacheFromStoredMappings(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repos := storage.NewRepositories(db)

	// A mapping for a source id that never appears in the feeds can only end
	// up in the cache through the warm-up pass over the mapping table.
	complex := &storage.CanonicalComplex{Name: "은마아파트", ComplexCode: "APT-test-eunma"}
	require.NoError(t, repos.Complexes.Create(ctx, complex))
	require.NoError(t, repos.SourceMappings.Create(ctx, &storage.SourceMapping{
		ComplexID:  complex.ID,
		SourceType: "naver",
		SourceID:   "n-99",
	}))

	warmed := cache.NewMemory()
	pipeline, _ := newTestPipeline(db, warmed)
	_, err := pipeline.Run(ctx)
	require.NoError(t, err)

	value, ok, err := warmed.Get(ctx, "mapping:naver:n-99")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, complex.ID.String(), value)
}

func TestPipeline_Run_PersistsRunReport(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	pipeline, _ := newTestPipeline(db, cache.NewMemory())

	report, err := pipeline.Run(ctx)
	require.NoError(t, err)

	var status string
	var errorCount int
	var payload []byte
	err = db.QueryRowContext(ctx,
		`SELECT status, error_count, report FROM integration_runs WHERE id = $1`,
		report.RunID).Scan(&status, &errorCount, &payload)
	require.NoError(t, err)
	assert.Equal(t, string(storage.RunStatusSucceeded), status)
	assert.Zero(t, errorCount)
	assert.NotEmpty(t, payload)
}

func TestPipeline_Run_QualityScoreCombinesCategories(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	pipeline, _ := newTestPipeline(db, cache.NewMemory())

	report, err := pipeline.Run(ctx)
	require.NoError(t, err)

	// Every fixture record passes validation, so the combined validity is a
	// flat 100 regardless of how the records spread across categories.
	assert.Equal(t, 7, report.Quality.Score.TotalRecords)
	assert.Equal(t, 7, report.Quality.Score.ValidRecords)
	assert.Equal(t, 100.0, report.Quality.Score.ValidityScore)

	for _, score := range []float64{
		report.Quality.Complexes.Overall,
		report.Quality.Listings.Overall,
		report.Quality.Transactions.Overall,
		report.Quality.Score.Overall,
	} {
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
	assert.NotEmpty(t, report.Quality.Audit.Findings)
}
