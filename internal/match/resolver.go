package match

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/danjilab/integration-engine/internal/cleaner"
)

// Method identifies which tier produced a match.
type Method string

const (
	MethodCoordinate     Method = "coordinate"
	MethodJibunAddress   Method = "jibun_address"
	MethodRoadAddress    Method = "road_address"
	MethodNameSimilarity Method = "name_similarity"
)

// Tier confidence values. The coordinate tier is authoritative; address and
// name tiers carry progressively less certainty.
const (
	confidenceCoordinate   = 1.0
	confidenceJibunAddress = 0.9
	confidenceRoadAddress  = 0.85
)

// Result describes a resolved match. Ephemeral, never persisted.
type Result struct {
	ComplexID  uuid.UUID
	Method     Method
	Confidence float64
}

// Candidate is a cleaned incoming complex record ready for matching.
type Candidate struct {
	Name      string
	Latitude  *float64
	Longitude *float64
	Jibun     string // normalized jibun address, empty when absent
	Road      string // normalized road address, empty when absent
	Sigungu   string
}

// Config holds resolver thresholds.
type Config struct {
	CoordinateTolerance float64
	NameThreshold       float64
}

// Resolver finds the canonical complex an incoming record belongs to. Tiers
// run in strict priority order; the first hit wins and later tiers never
// override it.
type Resolver struct {
	index *Index
	cfg   Config
}

// NewResolver creates a resolver over the given index.
func NewResolver(index *Index, cfg Config) *Resolver {
	if cfg.CoordinateTolerance == 0 {
		cfg.CoordinateTolerance = 0.0001
	}
	if cfg.NameThreshold == 0 {
		cfg.NameThreshold = 0.8
	}
	return &Resolver{index: index, cfg: cfg}
}

// Resolve attempts each matching tier in order and returns the first hit, or
// nil when the record is a new complex.
func (r *Resolver) Resolve(candidate Candidate) *Result {
	if result := r.matchCoordinate(candidate); result != nil {
		return result
	}
	if result := r.matchAddress(candidate.Jibun, r.index.jibunEntries(), MethodJibunAddress, confidenceJibunAddress); result != nil {
		return result
	}
	if result := r.matchAddress(candidate.Road, r.index.roadEntries(), MethodRoadAddress, confidenceRoadAddress); result != nil {
		return result
	}
	return r.matchName(candidate.Name, candidate.Sigungu)
}

// ResolveTransaction matches a transaction record by apartment name scoped to
// its stated region. Transactions carry no coordinates or source complex id,
// so only the name tier applies. The same brand names recur across districts,
// so a record whose region yields a usable token never matches outside it; a
// scoped miss is an orphan. Only a record stating no region at all is looked
// up across all districts.
func (r *Resolver) ResolveTransaction(apartmentName, regionName string) *Result {
	sigungu := cleaner.SplitRegion(regionName).Sigungu
	if sigungu == "" {
		// The feed sometimes states just the district token without a suffix
		// the region splitter recognizes; fall back to the raw token.
		fields := strings.Fields(cleaner.NormalizeAddress(regionName))
		if len(fields) > 0 {
			sigungu = fields[len(fields)-1]
		}
	}

	return r.matchName(apartmentName, sigungu)
}

// matchCoordinate finds the complex minimizing the sum of absolute deltas
// among those within tolerance on both axes.
func (r *Resolver) matchCoordinate(candidate Candidate) *Result {
	if candidate.Latitude == nil || candidate.Longitude == nil {
		return nil
	}

	lat := *candidate.Latitude
	lon := *candidate.Longitude

	var bestID uuid.UUID
	bestDelta := math.MaxFloat64
	found := false

	for _, id := range r.index.nearby(lat, lon) {
		complex, ok := r.index.Get(id)
		if !ok || complex.Latitude == nil || complex.Longitude == nil {
			continue
		}

		dLat := math.Abs(*complex.Latitude - lat)
		dLon := math.Abs(*complex.Longitude - lon)
		if dLat > r.cfg.CoordinateTolerance || dLon > r.cfg.CoordinateTolerance {
			continue
		}

		delta := dLat + dLon
		if delta < bestDelta || (delta == bestDelta && id.String() < bestID.String()) {
			bestDelta = delta
			bestID = id
			found = true
		}
	}

	if !found {
		return nil
	}
	return &Result{ComplexID: bestID, Method: MethodCoordinate, Confidence: confidenceCoordinate}
}

// matchAddress applies the substring-containment rule: canonical complexes
// whose stored normalized address contains the incoming string are
// candidates, and the shortest stored address (most specific) wins.
func (r *Resolver) matchAddress(incoming string, entries map[uuid.UUID]string, method Method, confidence float64) *Result {
	if incoming == "" {
		return nil
	}

	var bestID uuid.UUID
	bestLen := math.MaxInt
	found := false

	for id, stored := range entries {
		if stored == "" || !strings.Contains(stored, incoming) {
			continue
		}
		if len(stored) < bestLen || (len(stored) == bestLen && id.String() < bestID.String()) {
			bestLen = len(stored)
			bestID = id
			found = true
		}
	}

	if !found {
		return nil
	}
	return &Result{ComplexID: bestID, Method: method, Confidence: confidence}
}

// matchName scores Jaro-Winkler similarity against candidate names and their
// recorded variations, restricted to the given sigungu when present. Equal
// scores break to the lexically smallest complex ID so results are stable
// across runs.
func (r *Resolver) matchName(name, sigungu string) *Result {
	cleaned := cleaner.CleanString(name)
	if cleaned == nil {
		return nil
	}

	var bestID uuid.UUID
	bestScore := 0.0
	found := false

	for _, id := range r.index.district(sigungu) {
		complex, ok := r.index.Get(id)
		if !ok {
			continue
		}

		score := JaroWinklerSimilarity(*cleaned, complex.Name)
		for _, variation := range complex.NameVariations {
			if s := JaroWinklerSimilarity(*cleaned, variation); s > score {
				score = s
			}
		}

		if score < r.cfg.NameThreshold {
			continue
		}
		if score > bestScore || (score == bestScore && id.String() < bestID.String()) {
			bestScore = score
			bestID = id
			found = true
		}
	}

	if !found {
		return nil
	}
	return &Result{ComplexID: bestID, Method: MethodNameSimilarity, Confidence: bestScore}
}
