// Package cleaner provides stateless field normalization and parsing for raw
// upstream records. Every function is total: unparsable input yields nil, never
// an error or panic.
package cleaner

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	numericRe    = regexp.MustCompile(`[^0-9.\-]`)
	digitsRe     = regexp.MustCompile(`[^0-9]`)

	floorPairRe     = regexp.MustCompile(`^(-?\d+)\s*/\s*(\d+)`)
	floorSuffixRe   = regexp.MustCompile(`^(\d+)\s*[Ff층]`)
	floorBasementRe = regexp.MustCompile(`^(?:지하|[Bb])\s*(\d+)`)
)

// CleanString trims, collapses internal whitespace, and returns nil for empty.
func CleanString(s string) *string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// ParseCoordinate parses a latitude or longitude value, stripping any
// non-numeric characters first.
func ParseCoordinate(s string) *float64 {
	stripped := numericRe.ReplaceAllString(s, "")
	if stripped == "" {
		return nil
	}
	v, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseInteger parses an integer, stripping any non-digit characters first.
func ParseInteger(s string) *int {
	stripped := digitsRe.ReplaceAllString(s, "")
	if stripped == "" {
		return nil
	}
	v, err := strconv.Atoi(stripped)
	if err != nil {
		return nil
	}
	return &v
}

// ParsePrice parses a price field that may contain thousands separators and
// currency or unit suffixes. The result is in the feed's native unit
// (ten-thousand won).
func ParsePrice(s string) *int64 {
	stripped := digitsRe.ReplaceAllString(s, "")
	if stripped == "" {
		return nil
	}
	v, err := strconv.ParseInt(stripped, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseArea parses an area in square meters, stripping unit suffixes.
func ParseArea(s string) *float64 {
	stripped := numericRe.ReplaceAllString(s, "")
	if stripped == "" {
		return nil
	}
	v, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return nil
	}
	if v != v { // NaN guard
		return nil
	}
	return &v
}

// Floor is a parsed floor designation. Total is nil when the source only
// states the current floor.
type Floor struct {
	Current int
	Total   *int
}

// ParseFloor recognizes floor text in one of four patterns, first match wins:
//
//	"3/15"        current over total
//	"3F", "3층"   bare current floor with suffix
//	"지하2", "B2" basement, negative floor number
//
// Returns nil when no pattern matches.
func ParseFloor(s string) *Floor {
	text := strings.TrimSpace(s)
	if text == "" {
		return nil
	}

	if m := floorPairRe.FindStringSubmatch(text); m != nil {
		current, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return &Floor{Current: current, Total: &total}
		}
	}

	if m := floorBasementRe.FindStringSubmatch(text); m != nil {
		level, err := strconv.Atoi(m[1])
		if err == nil {
			return &Floor{Current: -level}
		}
	}

	if m := floorSuffixRe.FindStringSubmatch(text); m != nil {
		current, err := strconv.Atoi(m[1])
		if err == nil {
			return &Floor{Current: current}
		}
	}

	return nil
}

// ParseDate constructs a calendar date from year/month/day components.
// Returns nil if any component is missing (zero) or the triple does not form a
// real calendar date: time.Date normalizes overflow (Feb 30 becomes Mar 1), so
// the result must round-trip to the same components.
func ParseDate(year, month, day int) *time.Time {
	if year == 0 || month == 0 || day == 0 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return &t
}
