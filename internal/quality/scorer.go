// Package quality computes run-level data-quality scores and audits the
// stored dataset for structural defects that per-record validation cannot
// see.
package quality

import "github.com/danjilab/integration-engine/internal/validate"

// Score is the quality summary for one entity category in one run.
type Score struct {
	ValidityScore float64 `json:"validity_score"`
	IssueScore    float64 `json:"issue_score"`
	Overall       float64 `json:"overall"`
}

// RunScore is the whole-run quality summary, computed over all categories
// combined so an empty category cannot drag down an otherwise clean run.
type RunScore struct {
	ValidityScore float64 `json:"validity"`
	IssueScore    float64 `json:"issues"`
	Overall       float64 `json:"overall"`
	TotalRecords  int     `json:"total_records"`
	ValidRecords  int     `json:"valid_records"`
	IssueCount    int     `json:"issue_count"`
}

// ScoreCategory derives the category score from its validation stats.
// Validity is the valid fraction scaled to 0..100, zero when the category saw
// no records; the issue score starts at 100 and loses a point per finding,
// floored at zero.
func ScoreCategory(stats validate.CategoryStats) Score {
	total := stats.Valid + stats.Invalid

	validity := 0.0
	if total > 0 {
		validity = float64(stats.Valid) / float64(total) * 100
	}

	issueScore := 100.0 - float64(stats.IssueCount())
	if issueScore < 0 {
		issueScore = 0
	}

	return Score{
		ValidityScore: validity,
		IssueScore:    issueScore,
		Overall:       (validity + issueScore) / 2,
	}
}

// ScoreRun pools the validation stats of every category and derives the run
// score from the combined totals: validity is the valid fraction of all
// records scaled to 0..100 (100 when the run saw none), the issue score
// starts at 100 and loses a point per finding across every category, floored
// at zero, and overall is the mean of the two.
func ScoreRun(categories ...validate.CategoryStats) RunScore {
	score := RunScore{}
	for _, stats := range categories {
		score.TotalRecords += stats.Valid + stats.Invalid
		score.ValidRecords += stats.Valid
		score.IssueCount += stats.IssueCount()
	}

	score.ValidityScore = 100.0
	if score.TotalRecords > 0 {
		score.ValidityScore = float64(score.ValidRecords) / float64(score.TotalRecords) * 100
	}

	score.IssueScore = 100.0 - float64(score.IssueCount)
	if score.IssueScore < 0 {
		score.IssueScore = 0
	}

	score.Overall = (score.ValidityScore + score.IssueScore) / 2
	return score
}
