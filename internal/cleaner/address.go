package cleaner

import (
	"regexp"
	"strings"
)

var (
	addressPunctRe = regexp.MustCompile(`[^\p{L}\p{N}\s\-]`)
	parenRe        = regexp.MustCompile(`\([^)]*\)`)

	// Common complex-name suffixes across both feeds. Stripping them lets
	// "힐스테이트아파트" and "힐스테이트" land on the same variation.
	nameSuffixes = []string{
		"아파트단지", "아파트", "단지", "빌라", "마을", "타워", "하우스", "캐슬",
		"apt", "apartment", "tower", "village",
	}
)

// NormalizeAddress produces the join key used for address-based matching:
// punctuation other than word characters and hyphens is stripped, the result
// is lowercased and internal whitespace collapsed. The function is idempotent.
func NormalizeAddress(addr string) string {
	normalized := strings.ToLower(addr)
	normalized = addressPunctRe.ReplaceAllString(normalized, " ")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// Region holds the administrative division tokens extracted from an address.
type Region struct {
	Sido         string // province / metropolitan city
	Sigungu      string // district
	EupMyeonDong string // neighborhood
}

// SplitRegion extracts administrative division tokens from a free-text
// address. Best effort: missing levels stay empty.
func SplitRegion(addr string) Region {
	var region Region

	for _, token := range strings.Fields(NormalizeAddress(addr)) {
		switch {
		case region.Sido == "" && (strings.HasSuffix(token, "도") ||
			strings.HasSuffix(token, "특별시") || strings.HasSuffix(token, "광역시")):
			region.Sido = token
		case region.Sigungu == "" && (strings.HasSuffix(token, "구") ||
			strings.HasSuffix(token, "군") || strings.HasSuffix(token, "시")):
			// A bare "시" token doubles as sido when none was seen yet
			// (e.g. "서울시 강남구").
			if region.Sido == "" && strings.HasSuffix(token, "시") {
				region.Sido = token
			} else {
				region.Sigungu = token
			}
		case region.EupMyeonDong == "" && (strings.HasSuffix(token, "동") ||
			strings.HasSuffix(token, "읍") || strings.HasSuffix(token, "면") ||
			strings.HasSuffix(token, "가") || strings.HasSuffix(token, "리")):
			region.EupMyeonDong = token
		}
	}

	return region
}

// ExtractNameVariations returns the deduplicated set of name spellings to
// index for a complex: the raw name, the name with common complex suffixes
// stripped, and the name with parenthetical content removed.
func ExtractNameVariations(name string) []string {
	raw := strings.TrimSpace(whitespaceRe.ReplaceAllString(name, " "))
	if raw == "" {
		return nil
	}

	seen := map[string]bool{}
	var variations []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !seen[v] {
			seen[v] = true
			variations = append(variations, v)
		}
	}

	add(raw)

	stripped := raw
	for _, suffix := range nameSuffixes {
		lower := strings.ToLower(stripped)
		if strings.HasSuffix(lower, suffix) {
			stripped = strings.TrimSpace(stripped[:len(stripped)-len(suffix)])
			break
		}
	}
	add(stripped)

	add(whitespaceRe.ReplaceAllString(parenRe.ReplaceAllString(raw, ""), " "))

	return variations
}
