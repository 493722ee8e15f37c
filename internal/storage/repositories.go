package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// DB represents a database connection interface. Satisfied by *sql.DB and
// *sql.Tx for both the postgres and sqlite drivers.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// encodeStrings stores a string slice as a JSON text column so the schema
// works on both drivers.
func encodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStrings(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}

// ComplexRepository handles canonical complex CRUD operations.
type ComplexRepository struct {
	db DB
}

// NewComplexRepository creates a new complex repository.
func NewComplexRepository(db DB) *ComplexRepository {
	return &ComplexRepository{db: db}
}

const complexColumns = `id, complex_code, name, name_variations, latitude, longitude,
	address_jibun, address_road, address_normalized, sido, sigungu, eup_myeon_dong,
	completion_year, total_households, total_buildings, area_range, data_sources,
	confidence_score, created_at, updated_at`

// Create creates a new canonical complex.
func (r *ComplexRepository) Create(ctx context.Context, complex *CanonicalComplex) error {
	if complex.ID == uuid.Nil {
		complex.ID = uuid.New()
	}
	complex.CreatedAt = time.Now()
	complex.UpdatedAt = time.Now()

	query := `
		INSERT INTO canonical_complexes (` + complexColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := r.db.ExecContext(ctx, query,
		complex.ID, complex.ComplexCode, complex.Name, encodeStrings(complex.NameVariations),
		complex.Latitude, complex.Longitude, complex.AddressJibun, complex.AddressRoad,
		complex.AddressNormalized, complex.Sido, complex.Sigungu, complex.EupMyeonDong,
		complex.CompletionYear, complex.TotalHouseholds, complex.TotalBuildings,
		complex.AreaRange, encodeStrings(complex.DataSources), complex.ConfidenceScore,
		complex.CreatedAt, complex.UpdatedAt,
	)
	return err
}

// Update updates a canonical complex after a merge.
func (r *ComplexRepository) Update(ctx context.Context, complex *CanonicalComplex) error {
	complex.UpdatedAt = time.Now()

	query := `
		UPDATE canonical_complexes SET
			name = $1, name_variations = $2, latitude = $3, longitude = $4,
			address_jibun = $5, address_road = $6, address_normalized = $7,
			sido = $8, sigungu = $9, eup_myeon_dong = $10, completion_year = $11,
			total_households = $12, total_buildings = $13, area_range = $14,
			data_sources = $15, confidence_score = $16, updated_at = $17
		WHERE id = $18
	`
	result, err := r.db.ExecContext(ctx, query,
		complex.Name, encodeStrings(complex.NameVariations), complex.Latitude, complex.Longitude,
		complex.AddressJibun, complex.AddressRoad, complex.AddressNormalized,
		complex.Sido, complex.Sigungu, complex.EupMyeonDong, complex.CompletionYear,
		complex.TotalHouseholds, complex.TotalBuildings, complex.AreaRange,
		encodeStrings(complex.DataSources), complex.ConfidenceScore, complex.UpdatedAt,
		complex.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanComplex(scanner interface{ Scan(...interface{}) error }) (*CanonicalComplex, error) {
	complex := &CanonicalComplex{}
	var variations, sources string
	err := scanner.Scan(
		&complex.ID, &complex.ComplexCode, &complex.Name, &variations,
		&complex.Latitude, &complex.Longitude, &complex.AddressJibun, &complex.AddressRoad,
		&complex.AddressNormalized, &complex.Sido, &complex.Sigungu, &complex.EupMyeonDong,
		&complex.CompletionYear, &complex.TotalHouseholds, &complex.TotalBuildings,
		&complex.AreaRange, &sources, &complex.ConfidenceScore,
		&complex.CreatedAt, &complex.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	complex.NameVariations = decodeStrings(variations)
	complex.DataSources = decodeStrings(sources)
	return complex, nil
}

// GetByID retrieves a canonical complex by ID.
func (r *ComplexRepository) GetByID(ctx context.Context, id uuid.UUID) (*CanonicalComplex, error) {
	query := `SELECT ` + complexColumns + ` FROM canonical_complexes WHERE id = $1`
	complex, err := scanComplex(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return complex, err
}

// List retrieves all canonical complexes. The pipeline loads these into the
// in-memory index at the start of a run.
func (r *ComplexRepository) List(ctx context.Context) ([]*CanonicalComplex, error) {
	query := `SELECT ` + complexColumns + ` FROM canonical_complexes ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var complexes []*CanonicalComplex
	for rows.Next() {
		complex, err := scanComplex(rows)
		if err != nil {
			return nil, err
		}
		complexes = append(complexes, complex)
	}
	return complexes, rows.Err()
}

// ListingRepository handles listing persistence.
type ListingRepository struct {
	db DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create creates a new listing.
func (r *ListingRepository) Create(ctx context.Context, listing *Listing) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}

	query := `
		INSERT INTO listings (id, complex_id, deal_type, price_sale, price_jeonse,
			price_monthly, deposit, area_exclusive, area_supply, floor_current,
			floor_total, direction, room_structure, description, status, crawled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		listing.ID, listing.ComplexID, listing.DealType, listing.PriceSale, listing.PriceJeonse,
		listing.PriceMonthly, listing.Deposit, listing.AreaExclusive, listing.AreaSupply,
		listing.FloorCurrent, listing.FloorTotal, listing.Direction, listing.RoomStructure,
		listing.Description, listing.Status, listing.CrawledAt,
	)
	return err
}

// CountByComplex returns the number of listings for a complex.
func (r *ListingRepository) CountByComplex(ctx context.Context, complexID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE complex_id = $1`, complexID).Scan(&count)
	return count, err
}

// TransactionRepository handles transaction record persistence.
type TransactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create creates a new transaction record.
func (r *TransactionRepository) Create(ctx context.Context, tx *TransactionRecord) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	query := `
		INSERT INTO transaction_records (id, complex_id, deal_type, deal_date,
			deal_amount, monthly_rent, area_exclusive, floor_current, building_name,
			unit_number, data_source, original_record_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.ComplexID, tx.DealType, tx.DealDate, tx.DealAmount, tx.MonthlyRent,
		tx.AreaExclusive, tx.FloorCurrent, tx.BuildingName, tx.UnitNumber,
		tx.DataSource, tx.OriginalRecordID,
	)
	return err
}

// ExistsByOrigin reports whether a transaction from the given source record
// was already stored by an earlier run.
func (r *TransactionRepository) ExistsByOrigin(ctx context.Context, dataSource, originalRecordID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_records WHERE data_source = $1 AND original_record_id = $2`,
		dataSource, originalRecordID).Scan(&count)
	return count > 0, err
}

// SourceMappingRepository handles source mapping lookups.
type SourceMappingRepository struct {
	db DB
}

// NewSourceMappingRepository creates a new source mapping repository.
func NewSourceMappingRepository(db DB) *SourceMappingRepository {
	return &SourceMappingRepository{db: db}
}

// Get resolves a (source_type, source_id) pair to its canonical complex.
func (r *SourceMappingRepository) Get(ctx context.Context, sourceType, sourceID string) (*SourceMapping, error) {
	query := `
		SELECT complex_id, source_type, source_id, created_at
		FROM source_mappings WHERE source_type = $1 AND source_id = $2
	`
	mapping := &SourceMapping{}
	err := r.db.QueryRowContext(ctx, query, sourceType, sourceID).Scan(
		&mapping.ComplexID, &mapping.SourceType, &mapping.SourceID, &mapping.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return mapping, err
}

// Create creates a new source mapping. The UNIQUE(source_type, source_id)
// constraint enforces at most one mapping per pair.
func (r *SourceMappingRepository) Create(ctx context.Context, mapping *SourceMapping) error {
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO source_mappings (complex_id, source_type, source_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		mapping.ComplexID, mapping.SourceType, mapping.SourceID, mapping.CreatedAt,
	)
	return err
}

// ListByType lists all mappings for a source type.
func (r *SourceMappingRepository) ListByType(ctx context.Context, sourceType string) ([]*SourceMapping, error) {
	query := `
		SELECT complex_id, source_type, source_id, created_at
		FROM source_mappings WHERE source_type = $1
	`
	rows, err := r.db.QueryContext(ctx, query, sourceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*SourceMapping
	for rows.Next() {
		mapping := &SourceMapping{}
		if err := rows.Scan(
			&mapping.ComplexID, &mapping.SourceType, &mapping.SourceID, &mapping.CreatedAt,
		); err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

// RunRepository handles integration run persistence.
type RunRepository struct {
	db DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create creates a new integration run record.
func (r *RunRepository) Create(ctx context.Context, run *IntegrationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO integration_runs (id, status, report, error_count, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.Report, run.ErrorCount, run.StartedAt, run.CompletedAt,
	)
	return err
}

// Complete marks a run as finished and stores its report.
func (r *RunRepository) Complete(ctx context.Context, run *IntegrationRun) error {
	now := time.Now()
	run.CompletedAt = &now

	query := `
		UPDATE integration_runs SET status = $1, report = $2, error_count = $3, completed_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		run.Status, run.Report, run.ErrorCount, run.CompletedAt, run.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Repositories bundles all repositories together.
type Repositories struct {
	Complexes      *ComplexRepository
	Listings       *ListingRepository
	Transactions   *TransactionRepository
	SourceMappings *SourceMappingRepository
	Runs           *RunRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Complexes:      NewComplexRepository(db),
		Listings:       NewListingRepository(db),
		Transactions:   NewTransactionRepository(db),
		SourceMappings: NewSourceMappingRepository(db),
		Runs:           NewRunRepository(db),
	}
}
