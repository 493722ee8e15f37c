package validate

import (
	"fmt"
	"time"

	"github.com/danjilab/integration-engine/internal/cleaner"
	"github.com/danjilab/integration-engine/internal/source"
)

// Korean landmass bounding box. Coordinates outside are invalid, not merely
// suspicious.
const (
	MinLatitude  = 33.0
	MaxLatitude  = 39.0
	MinLongitude = 124.0
	MaxLongitude = 132.0
)

// Area bounds in square meters.
const (
	minArea = 10.0
	maxArea = 1000.0
)

// priceBand holds the plausible range for one deal type, in the feed's
// native ten-thousand-won unit.
type priceBand struct {
	min int64
	max int64
}

var priceBands = map[string]priceBand{
	cleaner.DealTypeSale:      {min: 1000, max: 2000000},
	cleaner.DealTypeJeonse:    {min: 500, max: 1500000},
	cleaner.DealTypeMonthly:   {min: 1, max: 5000},
	cleaner.DealTypeShortTerm: {min: 1, max: 5000},
}

// Config holds validator sentinels and ranges.
type Config struct {
	UnknownNameSentinel string
	MinCompletionYear   int
	MaxHouseholds       int
}

// Validator runs the fixed per-category check sequences.
type Validator struct {
	cfg Config
	now func() time.Time
}

// NewValidator creates a validator with the given configuration.
func NewValidator(cfg Config) *Validator {
	if cfg.MinCompletionYear == 0 {
		cfg.MinCompletionYear = 1950
	}
	if cfg.MaxHouseholds == 0 {
		cfg.MaxHouseholds = 50000
	}
	return &Validator{cfg: cfg, now: time.Now}
}

// CleanComplex is a complex record after cleaning, ready for matching.
type CleanComplex struct {
	SourceID          string
	Name              string
	NameVariations    []string
	Latitude          *float64
	Longitude         *float64
	AddressJibun      *string
	AddressRoad       *string
	AddressNormalized string
	Region            cleaner.Region
	CompletionYear    *int
	TotalHouseholds   *int
	TotalBuildings    *int
	AreaRange         *string
}

// ComplexResult is the validation outcome for one complex record. Cleaned is
// nil when a required key is missing and the record cannot be persisted.
type ComplexResult struct {
	IsValid  bool
	Errors   []Issue
	Warnings []Issue
	Cleaned  *CleanComplex
}

// ValidateComplex runs the complex check sequence.
func (v *Validator) ValidateComplex(rec source.ComplexRecord) ComplexResult {
	var result ComplexResult

	name := cleaner.CleanString(rec.Name)
	if name == nil || *name == v.cfg.UnknownNameSentinel {
		result.Errors = append(result.Errors, Issue{
			Kind: KindUnknownName, Severity: SeverityError, Field: "name",
			Detail: "name is empty or the unknown sentinel",
		})
	}

	if cleaner.CleanString(rec.SourceID) == nil {
		result.Errors = append(result.Errors, Issue{
			Kind: KindMissingRequired, Severity: SeverityError, Field: "source_id",
			Detail: "source id is required",
		})
	}

	lat := cleaner.ParseCoordinate(rec.Latitude)
	lon := cleaner.ParseCoordinate(rec.Longitude)
	if lat == nil || lon == nil ||
		*lat < MinLatitude || *lat > MaxLatitude ||
		*lon < MinLongitude || *lon > MaxLongitude {
		result.Errors = append(result.Errors, Issue{
			Kind: KindInvalidCoordinate, Severity: SeverityError, Field: "coordinates",
			Detail: fmt.Sprintf("missing or outside bounding box: %q, %q", rec.Latitude, rec.Longitude),
		})
		// Out-of-bbox values are never stored.
		lat, lon = nil, nil
	}

	normalized := cleaner.NormalizeAddress(rec.Address)
	region := cleaner.SplitRegion(rec.Address)
	if region.Sido == "" && region.Sigungu == "" {
		result.Warnings = append(result.Warnings, Issue{
			Kind: KindIncompleteAddress, Severity: SeverityWarning, Field: "address",
			Detail: "no recognizable province or district token; keeping best-effort normalization",
		})
	}

	year := cleaner.ParseInteger(rec.CompletionYear)
	if year != nil && (*year < v.cfg.MinCompletionYear || *year > v.now().Year()+5) {
		result.Warnings = append(result.Warnings, Issue{
			Kind: KindYearOutOfRange, Severity: SeverityWarning, Field: "completion_year",
			Detail: fmt.Sprintf("completion year %d outside %d..%d", *year, v.cfg.MinCompletionYear, v.now().Year()+5),
		})
	}

	households := cleaner.ParseInteger(rec.TotalHouseholds)
	if households != nil && (*households < 1 || *households > v.cfg.MaxHouseholds) {
		result.Warnings = append(result.Warnings, Issue{
			Kind: KindHouseholdsOutOfRange, Severity: SeverityWarning, Field: "total_households",
			Detail: fmt.Sprintf("household count %d outside 1..%d", *households, v.cfg.MaxHouseholds),
		})
	}

	buildings := cleaner.ParseInteger(rec.TotalBuildings)
	if buildings != nil && *buildings < 1 {
		result.Warnings = append(result.Warnings, Issue{
			Kind: KindBuildingsOutOfRange, Severity: SeverityWarning, Field: "total_buildings",
			Detail: fmt.Sprintf("building count %d below 1", *buildings),
		})
	}

	result.IsValid = len(result.Errors) == 0

	// A complex without a name or source id cannot be matched or re-identified.
	if name == nil || *name == v.cfg.UnknownNameSentinel || cleaner.CleanString(rec.SourceID) == nil {
		return result
	}

	result.Cleaned = &CleanComplex{
		SourceID:          *cleaner.CleanString(rec.SourceID),
		Name:              *name,
		NameVariations:    cleaner.ExtractNameVariations(*name),
		Latitude:          lat,
		Longitude:         lon,
		AddressJibun:      cleaner.CleanString(rec.Address),
		AddressRoad:       cleaner.CleanString(rec.RoadAddress),
		AddressNormalized: normalized,
		Region:            region,
		CompletionYear:    year,
		TotalHouseholds:   households,
		TotalBuildings:    buildings,
		AreaRange:         cleaner.CleanString(rec.AreaRange),
	}
	return result
}

// CleanListing is a listing record after cleaning.
type CleanListing struct {
	SourceID        string
	ComplexSourceID string
	DealType        string
	PriceSale       *int64
	Deposit         *int64
	MonthlyRent     *int64
	AreaExclusive   *float64
	AreaSupply      *float64
	Floor           *cleaner.Floor
	Direction       *string
	RoomStructure   *string
	Description     *string
	CrawledAt       time.Time
}

// ListingResult is the validation outcome for one listing record.
type ListingResult struct {
	IsValid  bool
	Errors   []Issue
	Warnings []Issue
	Cleaned  *CleanListing
}

// ValidateListing runs the listing check sequence.
func (v *Validator) ValidateListing(rec source.ListingRecord) ListingResult {
	var result ListingResult

	if cleaner.CleanString(rec.SourceID) == nil || cleaner.CleanString(rec.ComplexSourceID) == nil {
		result.Errors = append(result.Errors, Issue{
			Kind: KindMissingRequired, Severity: SeverityError, Field: "source_id",
			Detail: "listing and owning complex source ids are required",
		})
		result.IsValid = false
		return result
	}

	dealType := cleaner.StandardizeDealType(rec.DealType)
	if !cleaner.IsCanonicalDealType(dealType) {
		result.Errors = append(result.Errors, Issue{
			Kind: KindUnmappedDealType, Severity: SeverityError, Field: "deal_type",
			Detail: fmt.Sprintf("unmapped deal type %q", rec.DealType),
		})
	}

	priceSale := cleaner.ParsePrice(rec.PriceSale)
	deposit := cleaner.ParsePrice(rec.Deposit)
	monthlyRent := cleaner.ParsePrice(rec.MonthlyRent)
	result.Errors = append(result.Errors, checkPriceBand(dealType, priceSale, deposit, monthlyRent)...)

	area := cleaner.ParseArea(rec.AreaExclusive)
	if area != nil && (*area < minArea || *area > maxArea) {
		result.Errors = append(result.Errors, Issue{
			Kind: KindAreaOutOfRange, Severity: SeverityError, Field: "area_exclusive",
			Detail: fmt.Sprintf("area %.1f outside %.0f..%.0f", *area, minArea, maxArea),
		})
	}

	floor := cleaner.ParseFloor(rec.FloorText)
	if floor == nil {
		result.Errors = append(result.Errors, Issue{
			Kind: KindUnparsableFloor, Severity: SeverityError, Field: "floor",
			Detail: fmt.Sprintf("floor text %q matches no known pattern", rec.FloorText),
		})
	}

	result.IsValid = len(result.Errors) == 0
	result.Cleaned = &CleanListing{
		SourceID:        *cleaner.CleanString(rec.SourceID),
		ComplexSourceID: *cleaner.CleanString(rec.ComplexSourceID),
		DealType:        dealType,
		PriceSale:       priceSale,
		Deposit:         deposit,
		MonthlyRent:     monthlyRent,
		AreaExclusive:   area,
		AreaSupply:      cleaner.ParseArea(rec.AreaSupply),
		Floor:           floor,
		Direction:       cleaner.CleanString(rec.Direction),
		RoomStructure:   cleaner.CleanString(rec.RoomStructure),
		Description:     cleaner.CleanString(rec.Description),
		CrawledAt:       parseTimestamp(rec.CrawledAt, v.now),
	}
	return result
}

// CleanTransaction is a transaction record after cleaning. Cleaned is nil in
// the result when the deal date is not a real calendar date.
type CleanTransaction struct {
	SourceID      string
	RegionName    string
	ApartmentName string
	DealType      string
	DealDate      time.Time
	DealAmount    *int64
	MonthlyRent   *int64
	AreaExclusive *float64
	Floor         *cleaner.Floor
	BuildingName  *string
	UnitNumber    *string
}

// TransactionResult is the validation outcome for one transaction record.
type TransactionResult struct {
	IsValid  bool
	Errors   []Issue
	Warnings []Issue
	Cleaned  *CleanTransaction
}

// ValidateTransaction runs the transaction check sequence.
func (v *Validator) ValidateTransaction(rec source.TransactionRecord) TransactionResult {
	var result TransactionResult

	dealType := cleaner.StandardizeDealType(rec.DealType)
	if !cleaner.IsCanonicalDealType(dealType) {
		result.Errors = append(result.Errors, Issue{
			Kind: KindUnmappedDealType, Severity: SeverityError, Field: "deal_type",
			Detail: fmt.Sprintf("unmapped deal type %q", rec.DealType),
		})
	}

	dealDate := v.parseDealDate(rec, &result)

	amount := cleaner.ParsePrice(rec.DealAmount)
	monthlyRent := cleaner.ParsePrice(rec.MonthlyRent)
	result.Errors = append(result.Errors, checkPriceBand(dealType, amount, amount, monthlyRent)...)

	area := cleaner.ParseArea(rec.AreaExclusive)
	if area != nil && (*area < minArea || *area > maxArea) {
		result.Errors = append(result.Errors, Issue{
			Kind: KindAreaOutOfRange, Severity: SeverityError, Field: "area_exclusive",
			Detail: fmt.Sprintf("area %.1f outside %.0f..%.0f", *area, minArea, maxArea),
		})
	}

	floor := cleaner.ParseFloor(rec.FloorText)
	if floor == nil {
		result.Errors = append(result.Errors, Issue{
			Kind: KindUnparsableFloor, Severity: SeverityError, Field: "floor",
			Detail: fmt.Sprintf("floor text %q matches no known pattern", rec.FloorText),
		})
	}

	result.IsValid = len(result.Errors) == 0

	// A transaction without a real calendar date is never persisted.
	if dealDate == nil {
		return result
	}

	result.Cleaned = &CleanTransaction{
		SourceID:      rec.SourceID,
		RegionName:    rec.RegionName,
		ApartmentName: rec.ApartmentName,
		DealType:      dealType,
		DealDate:      *dealDate,
		DealAmount:    amount,
		MonthlyRent:   monthlyRent,
		AreaExclusive: area,
		Floor:         floor,
		BuildingName:  cleaner.CleanString(rec.BuildingName),
		UnitNumber:    cleaner.CleanString(rec.UnitNumber),
	}
	return result
}

// parseDealDate validates the three date components and the calendar
// round-trip, recording an error on any failure.
func (v *Validator) parseDealDate(rec source.TransactionRecord, result *TransactionResult) *time.Time {
	year := cleaner.ParseInteger(rec.DealYear)
	month := cleaner.ParseInteger(rec.DealMonth)
	day := cleaner.ParseInteger(rec.DealDay)

	fail := func(detail string) *time.Time {
		result.Errors = append(result.Errors, Issue{
			Kind: KindInvalidDate, Severity: SeverityError, Field: "deal_date", Detail: detail,
		})
		return nil
	}

	if year == nil || month == nil || day == nil {
		return fail(fmt.Sprintf("missing date component: %q-%q-%q", rec.DealYear, rec.DealMonth, rec.DealDay))
	}
	if *year < 1900 || *year > v.now().Year()+1 {
		return fail(fmt.Sprintf("deal year %d out of range", *year))
	}
	if *month < 1 || *month > 12 || *day < 1 || *day > 31 {
		return fail(fmt.Sprintf("month %d or day %d out of range", *month, *day))
	}

	date := cleaner.ParseDate(*year, *month, *day)
	if date == nil {
		return fail(fmt.Sprintf("%d-%02d-%02d is not a calendar date", *year, *month, *day))
	}
	return date
}

// checkPriceBand validates the deal-type-specific price field against its
// plausible band. Unknown deal types are already flagged separately.
func checkPriceBand(dealType string, sale, deposit, monthly *int64) []Issue {
	band, ok := priceBands[dealType]
	if !ok {
		return nil
	}

	var price *int64
	var field string
	switch dealType {
	case cleaner.DealTypeSale:
		price, field = sale, "price_sale"
	case cleaner.DealTypeJeonse:
		price, field = deposit, "deposit"
	default:
		price, field = monthly, "monthly_rent"
	}

	if price == nil {
		return nil
	}
	if *price < band.min || *price > band.max {
		return []Issue{{
			Kind: KindPriceOutOfBand, Severity: SeverityError, Field: field,
			Detail: fmt.Sprintf("%s %d outside band %d..%d for %s", field, *price, band.min, band.max, dealType),
		}}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string, now func() time.Time) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now()
}
