package integrate

import (
	"time"

	"github.com/google/uuid"

	"github.com/danjilab/integration-engine/internal/quality"
	"github.com/danjilab/integration-engine/internal/validate"
)

// Phase names one pipeline stage. The report records the phase a failed run
// stopped in.
type Phase string

const (
	PhaseInit         Phase = "init"
	PhaseExtract      Phase = "extract"
	PhaseValidate     Phase = "validate"
	PhaseComplexes    Phase = "integrate_complexes"
	PhaseListings     Phase = "integrate_listings"
	PhaseTransactions Phase = "integrate_transactions"
	PhaseQuality      Phase = "quality_check"
	PhaseReport       Phase = "report"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// ComplexStats counts canonical complex outcomes for one run. Matched is the
// total linked to an existing canonical row, whether through a stored mapping
// or a fresh tier match.
type ComplexStats struct {
	Processed int            `json:"processed"`
	Matched   int            `json:"matched"`
	Created   int            `json:"created"`
	Merged    int            `json:"merged"`
	Remapped  int            `json:"remapped"`
	Dropped   int            `json:"dropped"`
	MatchedBy map[string]int `json:"matched_by"`
}

// LinkStats counts dependent-record outcomes for one run.
type LinkStats struct {
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	Orphaned  int `json:"orphaned"`
	Dropped   int `json:"dropped"`
}

// ValidationStats groups per-category validation outcomes plus the feed-level
// cross-record check.
type ValidationStats struct {
	Complexes    validate.CategoryStats    `json:"complexes"`
	Listings     validate.CategoryStats    `json:"listings"`
	Transactions validate.CategoryStats    `json:"transactions"`
	CrossCheck   validate.CrossCheckResult `json:"cross_check"`
}

// QualityStats carries the combined run score, per-category detail scores,
// and the structural audit.
type QualityStats struct {
	Score        quality.RunScore    `json:"score"`
	Complexes    quality.Score       `json:"complexes"`
	Listings     quality.Score       `json:"listings"`
	Transactions quality.Score       `json:"transactions"`
	Audit        quality.AuditReport `json:"audit"`
}

// Report is the machine-readable summary persisted with each run.
type Report struct {
	RunID        uuid.UUID       `json:"run_id"`
	Status       string          `json:"status"`
	Phase        Phase           `json:"phase"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at"`
	Complexes    ComplexStats    `json:"complexes"`
	Listings     LinkStats       `json:"listings"`
	Transactions LinkStats       `json:"transactions"`
	Validation   ValidationStats `json:"validation"`
	Quality      QualityStats    `json:"quality"`
	Errors       []string        `json:"errors,omitempty"`
}

// NewReport initializes a report for a starting run.
func NewReport(runID uuid.UUID) *Report {
	return &Report{
		RunID:     runID,
		Phase:     PhaseInit,
		StartedAt: time.Now(),
		Complexes: ComplexStats{MatchedBy: make(map[string]int)},
	}
}
