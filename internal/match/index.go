package match

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/danjilab/integration-engine/internal/cleaner"
	"github.com/danjilab/integration-engine/internal/storage"
)

type cellKey struct {
	latCell int64
	lonCell int64
}

// Index is the read-through lookup structure the resolver queries: a
// coordinate bucket grid, normalized-address tables, and a name table scoped
// by district. The pipeline owns the index and updates it synchronously after
// every create or merge, so records later in the same batch can match
// complexes created earlier in the batch.
type Index struct {
	mu sync.RWMutex

	cellSize  float64
	complexes map[uuid.UUID]*storage.CanonicalComplex
	cells     map[cellKey][]uuid.UUID
	jibun     map[uuid.UUID]string
	road      map[uuid.UUID]string
	districts map[string][]uuid.UUID
}

// NewIndex creates an empty index. cellSize is the coordinate bucket width in
// degrees; it must be at least the matching tolerance so a 3x3 neighborhood
// scan covers every candidate.
func NewIndex(cellSize float64) *Index {
	return &Index{
		cellSize:  cellSize,
		complexes: make(map[uuid.UUID]*storage.CanonicalComplex),
		cells:     make(map[cellKey][]uuid.UUID),
		jibun:     make(map[uuid.UUID]string),
		road:      make(map[uuid.UUID]string),
		districts: make(map[string][]uuid.UUID),
	}
}

// Load bulk-adds existing canonical complexes, typically at run start.
func (idx *Index) Load(complexes []*storage.CanonicalComplex) {
	for _, complex := range complexes {
		idx.Add(complex)
	}
}

// Add indexes a canonical complex.
func (idx *Index) Add(complex *storage.CanonicalComplex) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.complexes[complex.ID] = complex

	if complex.Latitude != nil && complex.Longitude != nil {
		key := idx.cell(*complex.Latitude, *complex.Longitude)
		idx.cells[key] = append(idx.cells[key], complex.ID)
	}

	if complex.AddressJibun != nil && complex.AddressNormalized != "" {
		idx.jibun[complex.ID] = complex.AddressNormalized
	}
	if complex.AddressRoad != nil {
		idx.road[complex.ID] = cleaner.NormalizeAddress(*complex.AddressRoad)
	}

	if complex.Sigungu != nil && *complex.Sigungu != "" {
		idx.districts[*complex.Sigungu] = append(idx.districts[*complex.Sigungu], complex.ID)
	}
}

// Update re-indexes a complex after a merge filled previously null fields.
func (idx *Index) Update(complex *storage.CanonicalComplex) {
	idx.Remove(complex.ID)
	idx.Add(complex)
}

// Remove drops a complex from all index tables.
func (idx *Index) Remove(id uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	complex, ok := idx.complexes[id]
	if !ok {
		return
	}
	delete(idx.complexes, id)
	delete(idx.jibun, id)
	delete(idx.road, id)

	if complex.Latitude != nil && complex.Longitude != nil {
		key := idx.cell(*complex.Latitude, *complex.Longitude)
		idx.cells[key] = removeID(idx.cells[key], id)
	}
	if complex.Sigungu != nil {
		idx.districts[*complex.Sigungu] = removeID(idx.districts[*complex.Sigungu], id)
	}
}

// Get returns an indexed complex by ID.
func (idx *Index) Get(id uuid.UUID) (*storage.CanonicalComplex, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	complex, ok := idx.complexes[id]
	return complex, ok
}

// Len returns the number of indexed complexes.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.complexes)
}

// All returns every indexed complex. Order is unspecified.
func (idx *Index) All() []*storage.CanonicalComplex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	complexes := make([]*storage.CanonicalComplex, 0, len(idx.complexes))
	for _, complex := range idx.complexes {
		complexes = append(complexes, complex)
	}
	return complexes
}

// nearby returns candidates within the 3x3 cell neighborhood of a coordinate.
func (idx *Index) nearby(lat, lon float64) []uuid.UUID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	center := idx.cell(lat, lon)
	var ids []uuid.UUID
	for dLat := int64(-1); dLat <= 1; dLat++ {
		for dLon := int64(-1); dLon <= 1; dLon++ {
			key := cellKey{latCell: center.latCell + dLat, lonCell: center.lonCell + dLon}
			ids = append(ids, idx.cells[key]...)
		}
	}
	return ids
}

// district returns candidate IDs in a sigungu, or every ID when the district
// is unknown.
func (idx *Index) district(sigungu string) []uuid.UUID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if sigungu != "" {
		return idx.districts[sigungu]
	}
	ids := make([]uuid.UUID, 0, len(idx.complexes))
	for id := range idx.complexes {
		ids = append(ids, id)
	}
	return ids
}

// jibunEntries returns a snapshot of the normalized jibun address table.
func (idx *Index) jibunEntries() map[uuid.UUID]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := make(map[uuid.UUID]string, len(idx.jibun))
	for id, addr := range idx.jibun {
		entries[id] = addr
	}
	return entries
}

// roadEntries returns a snapshot of the normalized road address table.
func (idx *Index) roadEntries() map[uuid.UUID]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := make(map[uuid.UUID]string, len(idx.road))
	for id, addr := range idx.road {
		entries[id] = addr
	}
	return entries
}

func (idx *Index) cell(lat, lon float64) cellKey {
	return cellKey{
		latCell: int64(math.Floor(lat / idx.cellSize)),
		lonCell: int64(math.Floor(lon / idx.cellSize)),
	}
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
