// Package validate runs per-record and cross-record business-rule checks over
// cleaned upstream records, classifying findings as errors or warnings.
package validate

// IssueKind tags a validation finding so downstream tooling can filter by
// kind instead of string-matching messages.
type IssueKind string

const (
	KindInvalidCoordinate    IssueKind = "invalid_coordinate"
	KindIncompleteAddress    IssueKind = "incomplete_address"
	KindUnknownName          IssueKind = "unknown_name"
	KindYearOutOfRange       IssueKind = "year_out_of_range"
	KindHouseholdsOutOfRange IssueKind = "households_out_of_range"
	KindBuildingsOutOfRange  IssueKind = "buildings_out_of_range"
	KindUnmappedDealType     IssueKind = "unmapped_deal_type"
	KindPriceOutOfBand       IssueKind = "price_out_of_band"
	KindAreaOutOfRange       IssueKind = "area_out_of_range"
	KindUnparsableFloor      IssueKind = "unparsable_floor"
	KindInvalidDate          IssueKind = "invalid_date"
	KindMissingRequired      IssueKind = "missing_required"
)

// Severity distinguishes errors (count against validity) from warnings
// (informational only).
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding on one field of one record.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Field    string    `json:"field"`
	Detail   string    `json:"detail"`
}

// RecordIssues groups the findings for a single record.
type RecordIssues struct {
	RecordID string  `json:"record_id"`
	Issues   []Issue `json:"issues"`
}

// CategoryStats aggregates validation outcomes for one entity category.
type CategoryStats struct {
	Valid     int            `json:"valid"`
	Invalid   int            `json:"invalid"`
	Corrected int            `json:"corrected"`
	Issues    []RecordIssues `json:"issues"`
}

// Record notes one record's outcome in the category stats.
func (s *CategoryStats) Record(recordID string, errors, warnings []Issue, corrected bool) {
	if len(errors) == 0 {
		s.Valid++
	} else {
		s.Invalid++
	}
	if corrected {
		s.Corrected++
	}

	if len(errors) > 0 || len(warnings) > 0 {
		all := make([]Issue, 0, len(errors)+len(warnings))
		all = append(all, errors...)
		all = append(all, warnings...)
		s.Issues = append(s.Issues, RecordIssues{RecordID: recordID, Issues: all})
	}
}

// IssueCount returns the total number of individual findings in the category.
func (s *CategoryStats) IssueCount() int {
	count := 0
	for _, record := range s.Issues {
		count += len(record.Issues)
	}
	return count
}
