package validate

import (
	"fmt"

	"github.com/danjilab/integration-engine/internal/storage"
)

// CrossCheckResult summarizes findings that only appear when records are
// compared against each other.
type CrossCheckResult struct {
	DuplicateCoordinateCells int      `json:"duplicate_coordinate_cells"`
	OrphanedListings         int      `json:"orphaned_listings"`
	Details                  []string `json:"details,omitempty"`
}

// CheckDuplicateCoordinates counts coordinate cells shared by more than one
// canonical complex. Coordinates are bucketed at four decimal places, the
// same granularity the coordinate matcher uses, so a hit here means two
// canonical rows survived that should have merged.
func CheckDuplicateCoordinates(complexes []*storage.CanonicalComplex) CrossCheckResult {
	var result CrossCheckResult
	cells := make(map[string][]string)
	for _, c := range complexes {
		if c.Latitude == nil || c.Longitude == nil {
			continue
		}
		key := fmt.Sprintf("%.4f,%.4f", *c.Latitude, *c.Longitude)
		cells[key] = append(cells[key], c.Name)
	}
	for key, names := range cells {
		if len(names) > 1 {
			result.DuplicateCoordinateCells++
			result.Details = append(result.Details,
				fmt.Sprintf("cell %s holds %d complexes: %v", key, len(names), names))
		}
	}
	return result
}

// CheckOrphanedListings counts cleaned listings whose owning complex id never
// appeared in the complex feed of the same run.
func CheckOrphanedListings(listings []CleanListing, knownComplexIDs map[string]bool) CrossCheckResult {
	var result CrossCheckResult
	for _, l := range listings {
		if !knownComplexIDs[l.ComplexSourceID] {
			result.OrphanedListings++
			result.Details = append(result.Details,
				fmt.Sprintf("listing %s references unknown complex %s", l.SourceID, l.ComplexSourceID))
		}
	}
	return result
}
