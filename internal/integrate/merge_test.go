package integrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danjilab/integration-engine/internal/cleaner"
	"github.com/danjilab/integration-engine/internal/validate"
)

func ptr[T any](v T) *T { return &v }

func cleanedFixture() *validate.CleanComplex {
	return &validate.CleanComplex{
		SourceID:          "naver-1001",
		Name:              "래미안 원베일리",
		NameVariations:    []string{"래미안 원베일리"},
		Latitude:          ptr(37.5066),
		Longitude:         ptr(127.0037),
		AddressJibun:      ptr("서울특별시 서초구 반포동 810"),
		AddressNormalized: "서울특별시 서초구 반포동 810",
		Region:            cleaner.Region{Sido: "서울특별시", Sigungu: "서초구", EupMyeonDong: "반포동"},
		CompletionYear:    ptr(2023),
		TotalHouseholds:   ptr(2990),
	}
}

func TestNewCanonicalComplex(t *testing.T) {
	complex := NewCanonicalComplex(cleanedFixture(), "naver")

	assert.NotEmpty(t, complex.ID)
	assert.Contains(t, complex.ComplexCode, "APT-")
	assert.Equal(t, "래미안 원베일리", complex.Name)
	assert.Equal(t, []string{"naver"}, complex.DataSources)
	require.NotNil(t, complex.Sigungu)
	assert.Equal(t, "서초구", *complex.Sigungu)
	assert.Equal(t, 1.0, complex.ConfidenceScore)
}

func TestNewCanonicalComplex_CodeIsDeterministic(t *testing.T) {
	a := NewCanonicalComplex(cleanedFixture(), "naver")
	b := NewCanonicalComplex(cleanedFixture(), "naver")
	assert.Equal(t, a.ComplexCode, b.ComplexCode)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMergeCanonicalFields_FillsOnlyMissing(t *testing.T) {
	dst := NewCanonicalComplex(cleanedFixture(), "naver")
	dst.CompletionYear = nil
	dst.TotalBuildings = nil

	incoming := cleanedFixture()
	incoming.CompletionYear = ptr(2024)
	incoming.TotalBuildings = ptr(23)
	incoming.TotalHouseholds = ptr(9999)

	changed := MergeCanonicalFields(dst, incoming, "molit", 0.9)

	assert.True(t, changed)
	require.NotNil(t, dst.CompletionYear)
	assert.Equal(t, 2024, *dst.CompletionYear)
	require.NotNil(t, dst.TotalBuildings)
	assert.Equal(t, 23, *dst.TotalBuildings)
	// Already-set fields are never overwritten.
	assert.Equal(t, 2990, *dst.TotalHouseholds)
	assert.Contains(t, dst.DataSources, "molit")
}

func TestMergeCanonicalFields_CoordinatesNeverOverwritten(t *testing.T) {
	dst := NewCanonicalComplex(cleanedFixture(), "naver")

	incoming := cleanedFixture()
	incoming.Latitude = ptr(35.0000)
	incoming.Longitude = ptr(129.0000)

	MergeCanonicalFields(dst, incoming, "molit", 0.9)

	assert.InDelta(t, 37.5066, *dst.Latitude, 1e-9)
	assert.InDelta(t, 127.0037, *dst.Longitude, 1e-9)
}

func TestMergeCanonicalFields_FillsMissingCoordinates(t *testing.T) {
	base := cleanedFixture()
	base.Latitude = nil
	base.Longitude = nil
	dst := NewCanonicalComplex(base, "naver")

	changed := MergeCanonicalFields(dst, cleanedFixture(), "naver", 0)

	assert.True(t, changed)
	require.NotNil(t, dst.Latitude)
	assert.InDelta(t, 37.5066, *dst.Latitude, 1e-9)
}

func TestMergeCanonicalFields_CollectsNameVariations(t *testing.T) {
	dst := NewCanonicalComplex(cleanedFixture(), "naver")

	incoming := cleanedFixture()
	incoming.Name = "래미안원베일리"
	incoming.NameVariations = []string{"래미안원베일리"}

	MergeCanonicalFields(dst, incoming, "molit", 0.85)

	assert.Contains(t, dst.NameVariations, "래미안원베일리")
	// Canonical name keeps the first sighting's spelling.
	assert.Equal(t, "래미안 원베일리", dst.Name)
}

func TestMergeCanonicalFields_ConfidenceTracksWeakestLink(t *testing.T) {
	dst := NewCanonicalComplex(cleanedFixture(), "naver")
	MergeCanonicalFields(dst, cleanedFixture(), "molit", 0.85)
	assert.Equal(t, 0.85, dst.ConfidenceScore)

	// A later stronger match never raises it back.
	MergeCanonicalFields(dst, cleanedFixture(), "naver", 1.0)
	assert.Equal(t, 0.85, dst.ConfidenceScore)
}

func TestMergeCanonicalFields_NoChangeReturnsFalse(t *testing.T) {
	dst := NewCanonicalComplex(cleanedFixture(), "naver")
	changed := MergeCanonicalFields(dst, cleanedFixture(), "naver", 0)
	assert.False(t, changed)
}
