package cleaner

import "strings"

// Canonical deal-type tokens shared by listings and transactions.
const (
	DealTypeSale      = "sale"
	DealTypeJeonse    = "jeonse"
	DealTypeMonthly   = "monthly"
	DealTypeShortTerm = "short_term"
)

// dealTypeSynonyms maps source-specific vocabulary to canonical tokens. The
// crawler feed uses Korean labels and single-letter codes; the government
// feed uses its own labels.
var dealTypeSynonyms = map[string]string{
	"매매":           DealTypeSale,
	"sale":         DealTypeSale,
	"a1":           DealTypeSale,
	"전세":           DealTypeJeonse,
	"jeonse":       DealTypeJeonse,
	"lease":        DealTypeJeonse,
	"b1":           DealTypeJeonse,
	"월세":           DealTypeMonthly,
	"monthly":      DealTypeMonthly,
	"monthly_rent": DealTypeMonthly,
	"b2":           DealTypeMonthly,
	"단기임대":         DealTypeShortTerm,
	"short_term":   DealTypeShortTerm,
	"short-term":   DealTypeShortTerm,
	"b3":           DealTypeShortTerm,
}

// StandardizeDealType maps a source deal-type label to its canonical token.
// Unrecognized input passes through unchanged so the validator can flag it.
func StandardizeDealType(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := dealTypeSynonyms[key]; ok {
		return canonical
	}
	return raw
}

// IsCanonicalDealType reports whether the token is one of the canonical
// deal types.
func IsCanonicalDealType(token string) bool {
	switch token {
	case DealTypeSale, DealTypeJeonse, DealTypeMonthly, DealTypeShortTerm:
		return true
	}
	return false
}
