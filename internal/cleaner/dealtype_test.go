package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardizeDealType(t *testing.T) {
	cases := map[string]string{
		"매매":      DealTypeSale,
		"A1":      DealTypeSale,
		"전세":      DealTypeJeonse,
		"lease":   DealTypeJeonse,
		"월세":      DealTypeMonthly,
		"B2":      DealTypeMonthly,
		"단기임대":    DealTypeShortTerm,
		" Sale ":  DealTypeSale,
		"monthly": DealTypeMonthly,
	}
	for raw, want := range cases {
		assert.Equal(t, want, StandardizeDealType(raw), raw)
	}
}

func TestStandardizeDealType_UnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "경매", StandardizeDealType("경매"))
	assert.False(t, IsCanonicalDealType(StandardizeDealType("경매")))
}

func TestIsCanonicalDealType(t *testing.T) {
	assert.True(t, IsCanonicalDealType(DealTypeSale))
	assert.True(t, IsCanonicalDealType(DealTypeShortTerm))
	assert.False(t, IsCanonicalDealType("매매"))
}
