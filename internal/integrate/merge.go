// Package integrate runs the batch pipeline that turns raw feed records into
// the canonical dataset: extract, validate, match, merge, persist, score.
package integrate

import (
	"github.com/google/uuid"

	"github.com/danjilab/integration-engine/internal/storage"
	"github.com/danjilab/integration-engine/internal/validate"
)

// complexCodeNamespace seeds deterministic complex codes so re-creating the
// same complex from the same source yields the same code.
var complexCodeNamespace = uuid.MustParse("7f1a4c2e-9b3d-4e5f-8a6b-1c2d3e4f5a6b")

// NewCanonicalComplex builds a fresh canonical row from a cleaned record.
func NewCanonicalComplex(clean *validate.CleanComplex, sourceType string) *storage.CanonicalComplex {
	complex := &storage.CanonicalComplex{
		ID:                uuid.New(),
		ComplexCode:       complexCode(clean),
		Name:              clean.Name,
		NameVariations:    clean.NameVariations,
		Latitude:          clean.Latitude,
		Longitude:         clean.Longitude,
		AddressJibun:      clean.AddressJibun,
		AddressRoad:       clean.AddressRoad,
		AddressNormalized: clean.AddressNormalized,
		CompletionYear:    clean.CompletionYear,
		TotalHouseholds:   clean.TotalHouseholds,
		TotalBuildings:    clean.TotalBuildings,
		AreaRange:         clean.AreaRange,
		DataSources:       []string{sourceType},
		ConfidenceScore:   1.0,
	}
	if clean.Region.Sido != "" {
		complex.Sido = &clean.Region.Sido
	}
	if clean.Region.Sigungu != "" {
		complex.Sigungu = &clean.Region.Sigungu
	}
	if clean.Region.EupMyeonDong != "" {
		complex.EupMyeonDong = &clean.Region.EupMyeonDong
	}
	return complex
}

// complexCode derives a stable public code from the canonical name and
// location. Two records that would produce the same code would already have
// merged through the address or name tiers.
func complexCode(clean *validate.CleanComplex) string {
	seed := clean.Name + "|" + clean.Region.Sigungu + "|" + clean.AddressNormalized
	return "APT-" + uuid.NewSHA1(complexCodeNamespace, []byte(seed)).String()[:12]
}

// MergeCanonicalFields folds a cleaned sighting into an existing canonical
// complex. Only missing fields are filled; coordinates are never overwritten
// once set. Returns true when anything changed.
func MergeCanonicalFields(dst *storage.CanonicalComplex, clean *validate.CleanComplex, sourceType string, confidence float64) bool {
	changed := false

	if dst.Latitude == nil && dst.Longitude == nil &&
		clean.Latitude != nil && clean.Longitude != nil {
		dst.Latitude = clean.Latitude
		dst.Longitude = clean.Longitude
		changed = true
	}

	if dst.AddressJibun == nil && clean.AddressJibun != nil {
		dst.AddressJibun = clean.AddressJibun
		changed = true
	}
	if dst.AddressRoad == nil && clean.AddressRoad != nil {
		dst.AddressRoad = clean.AddressRoad
		changed = true
	}
	if dst.AddressNormalized == "" && clean.AddressNormalized != "" {
		dst.AddressNormalized = clean.AddressNormalized
		changed = true
	}

	if dst.Sido == nil && clean.Region.Sido != "" {
		sido := clean.Region.Sido
		dst.Sido = &sido
		changed = true
	}
	if dst.Sigungu == nil && clean.Region.Sigungu != "" {
		sigungu := clean.Region.Sigungu
		dst.Sigungu = &sigungu
		changed = true
	}
	if dst.EupMyeonDong == nil && clean.Region.EupMyeonDong != "" {
		dong := clean.Region.EupMyeonDong
		dst.EupMyeonDong = &dong
		changed = true
	}

	if dst.CompletionYear == nil && clean.CompletionYear != nil {
		dst.CompletionYear = clean.CompletionYear
		changed = true
	}
	if dst.TotalHouseholds == nil && clean.TotalHouseholds != nil {
		dst.TotalHouseholds = clean.TotalHouseholds
		changed = true
	}
	if dst.TotalBuildings == nil && clean.TotalBuildings != nil {
		dst.TotalBuildings = clean.TotalBuildings
		changed = true
	}
	if dst.AreaRange == nil && clean.AreaRange != nil {
		dst.AreaRange = clean.AreaRange
		changed = true
	}

	if clean.Name != dst.Name && appendMissing(&dst.NameVariations, clean.Name) {
		changed = true
	}
	for _, variation := range clean.NameVariations {
		if variation == dst.Name {
			continue
		}
		if appendMissing(&dst.NameVariations, variation) {
			changed = true
		}
	}

	if appendMissing(&dst.DataSources, sourceType) {
		changed = true
	}

	// Confidence tracks the weakest evidence that linked a source to this row.
	if confidence > 0 && (dst.ConfidenceScore == 0 || confidence < dst.ConfidenceScore) {
		dst.ConfidenceScore = confidence
		changed = true
	}

	return changed
}

func appendMissing(values *[]string, value string) bool {
	if value == "" {
		return false
	}
	for _, existing := range *values {
		if existing == value {
			return false
		}
	}
	*values = append(*values, value)
	return true
}
