package quality

import (
	"context"
	"fmt"

	"github.com/danjilab/integration-engine/internal/storage"
	"github.com/danjilab/integration-engine/internal/validate"
)

// AuditFinding is one defect class discovered in the stored dataset.
type AuditFinding struct {
	Check   string   `json:"check"`
	Count   int      `json:"count"`
	Samples []string `json:"samples,omitempty"`
}

// AuditReport is the outcome of the structural audit pass.
type AuditReport struct {
	Findings []AuditFinding `json:"findings"`
}

// TotalDefects sums the counts across findings.
func (r AuditReport) TotalDefects() int {
	total := 0
	for _, f := range r.Findings {
		total += f.Count
	}
	return total
}

const maxAuditSamples = 5

// Auditor runs the structural checks against the stored dataset.
type Auditor struct {
	db storage.DB
}

// NewAuditor creates an auditor over the given database.
func NewAuditor(db storage.DB) *Auditor {
	return &Auditor{db: db}
}

// Run executes all structural checks and collects their findings. Empty
// findings are included so trend dashboards see explicit zeros.
func (a *Auditor) Run(ctx context.Context) (AuditReport, error) {
	var report AuditReport

	complexes, err := storage.NewComplexRepository(a.db).List(ctx)
	if err != nil {
		return report, fmt.Errorf("list complexes for audit: %w", err)
	}

	report.Findings = append(report.Findings, a.duplicateCoordinates(complexes))
	report.Findings = append(report.Findings, a.invalidStoredCoordinates(complexes))

	orphans, err := a.orphanedListings(ctx)
	if err != nil {
		return report, err
	}
	report.Findings = append(report.Findings, orphans)

	anomalies, err := a.priceAnomalies(ctx)
	if err != nil {
		return report, err
	}
	report.Findings = append(report.Findings, anomalies)

	return report, nil
}

// duplicateCoordinates flags coordinate cells shared by more than one
// canonical complex.
func (a *Auditor) duplicateCoordinates(complexes []*storage.CanonicalComplex) AuditFinding {
	finding := AuditFinding{Check: "duplicate_coordinates"}
	cross := validate.CheckDuplicateCoordinates(complexes)
	finding.Count = cross.DuplicateCoordinateCells
	finding.Samples = clipSamples(cross.Details)
	return finding
}

// invalidStoredCoordinates flags complexes whose stored coordinates fall
// outside the Korean bounding box. Validation should make this impossible, so
// any hit means a write path bypassed it.
func (a *Auditor) invalidStoredCoordinates(complexes []*storage.CanonicalComplex) AuditFinding {
	finding := AuditFinding{Check: "invalid_stored_coordinates"}
	for _, c := range complexes {
		if c.Latitude == nil || c.Longitude == nil {
			continue
		}
		if *c.Latitude < validate.MinLatitude || *c.Latitude > validate.MaxLatitude ||
			*c.Longitude < validate.MinLongitude || *c.Longitude > validate.MaxLongitude {
			finding.Count++
			if len(finding.Samples) < maxAuditSamples {
				finding.Samples = append(finding.Samples,
					fmt.Sprintf("%s at %.5f,%.5f", c.Name, *c.Latitude, *c.Longitude))
			}
		}
	}
	return finding
}

// orphanedListings flags listings whose complex row no longer exists.
func (a *Auditor) orphanedListings(ctx context.Context) (AuditFinding, error) {
	finding := AuditFinding{Check: "orphaned_listings"}
	query := `
		SELECT l.id FROM listings l
		LEFT JOIN canonical_complexes c ON c.id = l.complex_id
		WHERE c.id IS NULL
	`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return finding, fmt.Errorf("audit orphaned listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return finding, err
		}
		finding.Count++
		if len(finding.Samples) < maxAuditSamples {
			finding.Samples = append(finding.Samples, id)
		}
	}
	return finding, rows.Err()
}

// priceAnomalies flags stored sale listings whose price differs from the
// complex-wide average by more than a factor of ten. These survived
// validation inside the plausible band but still look wrong next to their
// neighbors.
func (a *Auditor) priceAnomalies(ctx context.Context) (AuditFinding, error) {
	finding := AuditFinding{Check: "price_anomalies"}
	query := `
		SELECT l.id, l.price_sale, avg_prices.avg_price
		FROM listings l
		JOIN (
			SELECT complex_id, AVG(price_sale) AS avg_price
			FROM listings
			WHERE price_sale IS NOT NULL AND deal_type = 'sale'
			GROUP BY complex_id
			HAVING COUNT(*) >= 3
		) avg_prices ON avg_prices.complex_id = l.complex_id
		WHERE l.price_sale IS NOT NULL AND l.deal_type = 'sale'
	`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return finding, fmt.Errorf("audit price anomalies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var price, avg float64
		if err := rows.Scan(&id, &price, &avg); err != nil {
			return finding, err
		}
		if avg <= 0 {
			continue
		}
		ratio := price / avg
		if ratio > 10 || ratio < 0.1 {
			finding.Count++
			if len(finding.Samples) < maxAuditSamples {
				finding.Samples = append(finding.Samples,
					fmt.Sprintf("%s price %.0f vs complex average %.0f", id, price, avg))
			}
		}
	}
	return finding, rows.Err()
}

func clipSamples(details []string) []string {
	if len(details) > maxAuditSamples {
		return details[:maxAuditSamples]
	}
	return details
}
