// Package storage provides database models and repositories for the
// integration engine's canonical dataset.
package storage

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusExpired ListingStatus = "expired"
)

// RunStatus represents integration run status.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSucceeded RunStatus = "succeeded"
)

// CanonicalComplex is the single deduplicated representation of an apartment
// complex shared by all source feeds. Never deleted by the engine; fields are
// filled non-destructively as new sightings arrive.
type CanonicalComplex struct {
	ID                uuid.UUID `json:"id" db:"id"`
	ComplexCode       string    `json:"complex_code" db:"complex_code"`
	Name              string    `json:"name" db:"name"`
	NameVariations    []string  `json:"name_variations" db:"name_variations"`
	Latitude          *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64  `json:"longitude,omitempty" db:"longitude"`
	AddressJibun      *string   `json:"address_jibun,omitempty" db:"address_jibun"`
	AddressRoad       *string   `json:"address_road,omitempty" db:"address_road"`
	AddressNormalized string    `json:"address_normalized" db:"address_normalized"`
	Sido              *string   `json:"sido,omitempty" db:"sido"`
	Sigungu           *string   `json:"sigungu,omitempty" db:"sigungu"`
	EupMyeonDong      *string   `json:"eup_myeon_dong,omitempty" db:"eup_myeon_dong"`
	CompletionYear    *int      `json:"completion_year,omitempty" db:"completion_year"`
	TotalHouseholds   *int      `json:"total_households,omitempty" db:"total_households"`
	TotalBuildings    *int      `json:"total_buildings,omitempty" db:"total_buildings"`
	AreaRange         *string   `json:"area_range,omitempty" db:"area_range"`
	DataSources       []string  `json:"data_sources" db:"data_sources"`
	ConfidenceScore   float64   `json:"confidence_score" db:"confidence_score"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Listing is a crawled sale/rental advertisement linked to exactly one
// canonical complex.
type Listing struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	ComplexID     uuid.UUID     `json:"complex_id" db:"complex_id"`
	DealType      string        `json:"deal_type" db:"deal_type"`
	PriceSale     *int64        `json:"price_sale,omitempty" db:"price_sale"`
	PriceJeonse   *int64        `json:"price_jeonse,omitempty" db:"price_jeonse"`
	PriceMonthly  *int64        `json:"price_monthly,omitempty" db:"price_monthly"`
	Deposit       *int64        `json:"deposit,omitempty" db:"deposit"`
	AreaExclusive *float64      `json:"area_exclusive,omitempty" db:"area_exclusive"`
	AreaSupply    *float64      `json:"area_supply,omitempty" db:"area_supply"`
	FloorCurrent  *int          `json:"floor_current,omitempty" db:"floor_current"`
	FloorTotal    *int          `json:"floor_total,omitempty" db:"floor_total"`
	Direction     *string       `json:"direction,omitempty" db:"direction"`
	RoomStructure *string       `json:"room_structure,omitempty" db:"room_structure"`
	Description   *string       `json:"description,omitempty" db:"description"`
	Status        ListingStatus `json:"status" db:"status"`
	CrawledAt     time.Time     `json:"crawled_at" db:"crawled_at"`
}

// TransactionRecord is a government-reported deal linked to one canonical
// complex.
type TransactionRecord struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ComplexID        uuid.UUID `json:"complex_id" db:"complex_id"`
	DealType         string    `json:"deal_type" db:"deal_type"`
	DealDate         time.Time `json:"deal_date" db:"deal_date"`
	DealAmount       *int64    `json:"deal_amount,omitempty" db:"deal_amount"`
	MonthlyRent      *int64    `json:"monthly_rent,omitempty" db:"monthly_rent"`
	AreaExclusive    *float64  `json:"area_exclusive,omitempty" db:"area_exclusive"`
	FloorCurrent     *int      `json:"floor_current,omitempty" db:"floor_current"`
	BuildingName     *string   `json:"building_name,omitempty" db:"building_name"`
	UnitNumber       *string   `json:"unit_number,omitempty" db:"unit_number"`
	DataSource       string    `json:"data_source" db:"data_source"`
	OriginalRecordID string    `json:"original_record_id" db:"original_record_id"`
}

// SourceMapping re-identifies a complex already seen from the same source
// without re-running the matching tiers. At most one mapping exists per
// (source_type, source_id) pair.
type SourceMapping struct {
	ComplexID  uuid.UUID `json:"complex_id" db:"complex_id"`
	SourceType string    `json:"source_type" db:"source_type"`
	SourceID   string    `json:"source_id" db:"source_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// IntegrationRun records one batch run and its report for trend monitoring.
type IntegrationRun struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Status      RunStatus  `json:"status" db:"status"`
	Report      []byte     `json:"report,omitempty" db:"report"`
	ErrorCount  int        `json:"error_count" db:"error_count"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
