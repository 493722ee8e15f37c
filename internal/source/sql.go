package source

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLListingFeed extracts crawler records from staging tables populated by
// the crawler's own loader.
type SQLListingFeed struct {
	db         *sql.DB
	sourceType string
}

// NewSQLListingFeed creates a staging-table-backed listing feed.
func NewSQLListingFeed(db *sql.DB, sourceType string) *SQLListingFeed {
	return &SQLListingFeed{db: db, sourceType: sourceType}
}

// SourceType returns the tag written into source mappings.
func (f *SQLListingFeed) SourceType() string { return f.sourceType }

// Complexes reads the raw complex staging table.
func (f *SQLListingFeed) Complexes(ctx context.Context) ([]ComplexRecord, error) {
	query := `
		SELECT source_id, name, address, road_address, completion_year,
			total_households, total_buildings, area_range, latitude, longitude
		FROM raw_complexes
	`
	rows, err := f.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query raw complexes: %w", err)
	}
	defer rows.Close()

	var records []ComplexRecord
	for rows.Next() {
		var rec ComplexRecord
		if err := rows.Scan(
			&rec.SourceID, &rec.Name, &rec.Address, &rec.RoadAddress, &rec.CompletionYear,
			&rec.TotalHouseholds, &rec.TotalBuildings, &rec.AreaRange,
			&rec.Latitude, &rec.Longitude,
		); err != nil {
			return nil, fmt.Errorf("scan raw complex: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Listings reads the raw listing staging table.
func (f *SQLListingFeed) Listings(ctx context.Context) ([]ListingRecord, error) {
	query := `
		SELECT source_id, complex_source_id, deal_type, price_sale, deposit,
			monthly_rent, area_exclusive, area_supply, floor_text, direction,
			room_structure, description, crawled_at
		FROM raw_listings
	`
	rows, err := f.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query raw listings: %w", err)
	}
	defer rows.Close()

	var records []ListingRecord
	for rows.Next() {
		var rec ListingRecord
		if err := rows.Scan(
			&rec.SourceID, &rec.ComplexSourceID, &rec.DealType, &rec.PriceSale,
			&rec.Deposit, &rec.MonthlyRent, &rec.AreaExclusive, &rec.AreaSupply,
			&rec.FloorText, &rec.Direction, &rec.RoomStructure, &rec.Description,
			&rec.CrawledAt,
		); err != nil {
			return nil, fmt.Errorf("scan raw listing: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SQLTransactionFeed extracts government records from a staging table.
type SQLTransactionFeed struct {
	db         *sql.DB
	sourceType string
}

// NewSQLTransactionFeed creates a staging-table-backed transaction feed.
func NewSQLTransactionFeed(db *sql.DB, sourceType string) *SQLTransactionFeed {
	return &SQLTransactionFeed{db: db, sourceType: sourceType}
}

// SourceType returns the tag written into source mappings.
func (f *SQLTransactionFeed) SourceType() string { return f.sourceType }

// Transactions reads the raw transaction staging table.
func (f *SQLTransactionFeed) Transactions(ctx context.Context) ([]TransactionRecord, error) {
	query := `
		SELECT source_id, region_name, apartment_name, deal_type, deal_year,
			deal_month, deal_day, deal_amount, monthly_rent, area_exclusive,
			floor_text, building_name, unit_number, crawled_at
		FROM raw_transactions
	`
	rows, err := f.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query raw transactions: %w", err)
	}
	defer rows.Close()

	var records []TransactionRecord
	for rows.Next() {
		var rec TransactionRecord
		if err := rows.Scan(
			&rec.SourceID, &rec.RegionName, &rec.ApartmentName, &rec.DealType,
			&rec.DealYear, &rec.DealMonth, &rec.DealDay, &rec.DealAmount,
			&rec.MonthlyRent, &rec.AreaExclusive, &rec.FloorText,
			&rec.BuildingName, &rec.UnitNumber, &rec.CrawledAt,
		); err != nil {
			return nil, fmt.Errorf("scan raw transaction: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
