// Package source defines the raw upstream record shapes and the extractors
// that pull them from the two feeds: the commercial listings crawler and the
// government transaction feed. The feeds share no primary key and all fields
// arrive as free text.
package source

import "context"

// ComplexRecord is a raw apartment-complex sighting from the crawler feed.
type ComplexRecord struct {
	SourceID        string `json:"source_id"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	RoadAddress     string `json:"road_address"`
	CompletionYear  string `json:"completion_year"`
	TotalHouseholds string `json:"total_households"`
	TotalBuildings  string `json:"total_buildings"`
	AreaRange       string `json:"area_range"`
	Latitude        string `json:"latitude"`
	Longitude       string `json:"longitude"`
}

// ListingRecord is a raw advertisement from the crawler feed. ComplexSourceID
// references the crawler's own complex identifier, not a canonical one.
type ListingRecord struct {
	SourceID        string `json:"source_id"`
	ComplexSourceID string `json:"complex_source_id"`
	DealType        string `json:"deal_type"`
	PriceSale       string `json:"price_sale"`
	Deposit         string `json:"deposit"`
	MonthlyRent     string `json:"monthly_rent"`
	AreaExclusive   string `json:"area_exclusive"`
	AreaSupply      string `json:"area_supply"`
	FloorText       string `json:"floor_text"`
	Direction       string `json:"direction"`
	RoomStructure   string `json:"room_structure"`
	Description     string `json:"description"`
	CrawledAt       string `json:"crawled_at"`
}

// TransactionRecord is a raw deal report from the government feed. It names
// its complex only by region and apartment name.
type TransactionRecord struct {
	SourceID      string `json:"source_id"`
	RegionName    string `json:"region_name"`
	ApartmentName string `json:"apartment_name"`
	DealType      string `json:"deal_type"`
	DealYear      string `json:"deal_year"`
	DealMonth     string `json:"deal_month"`
	DealDay       string `json:"deal_day"`
	DealAmount    string `json:"deal_amount"`
	MonthlyRent   string `json:"monthly_rent"`
	AreaExclusive string `json:"area_exclusive"`
	FloorText     string `json:"floor_text"`
	BuildingName  string `json:"building_name"`
	UnitNumber    string `json:"unit_number"`
	CrawledAt     string `json:"crawled_at"`
}

// ListingFeed extracts complex and listing arrays from the crawler snapshot.
type ListingFeed interface {
	Complexes(ctx context.Context) ([]ComplexRecord, error)
	Listings(ctx context.Context) ([]ListingRecord, error)
	SourceType() string
}

// TransactionFeed extracts transaction arrays from the government feed.
type TransactionFeed interface {
	Transactions(ctx context.Context) ([]TransactionRecord, error)
	SourceType() string
}
