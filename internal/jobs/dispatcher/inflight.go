package dispatcher

import (
	"sync"

	"github.com/ternarybob/prospectus/internal/models"
)

// inflightTable tracks running jobs against the global and per-category
// concurrency caps, and remembers which job IDs hold a slot so the stale
// watchdog never requeues work still executing in this process.
type inflightTable struct {
	mu       sync.Mutex
	maxTotal int
	limits   map[models.EntityType]int
	total    int
	counts   map[models.EntityType]int
	held     map[string]bool
}

func newInflightTable(maxTotal int, limits map[models.EntityType]int) *inflightTable {
	return &inflightTable{
		maxTotal: maxTotal,
		limits:   limits,
		counts:   make(map[models.EntityType]int),
		held:     make(map[string]bool),
	}
}

// TryAcquire reserves a slot for a job of the given category. Returns
// false when the category cap or the global cap is already full.
func (t *inflightTable) TryAcquire(category models.EntityType, jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxTotal > 0 && t.total >= t.maxTotal {
		return false
	}
	if limit, ok := t.limits[category]; ok && t.counts[category] >= limit {
		return false
	}

	t.total++
	t.counts[category]++
	t.held[jobID] = true
	return true
}

// Release frees a slot taken with TryAcquire.
func (t *inflightTable) Release(category models.EntityType, jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total > 0 {
		t.total--
	}
	if t.counts[category] > 0 {
		t.counts[category]--
	}
	delete(t.held, jobID)
}

// Holds reports whether the job currently occupies a slot.
func (t *inflightTable) Holds(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held[jobID]
}

// Snapshot reports current occupancy for status endpoints.
func (t *inflightTable) Snapshot() (total int, byCategory map[models.EntityType]int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byCategory = make(map[models.EntityType]int, len(t.counts))
	for category, count := range t.counts {
		byCategory[category] = count
	}
	return t.total, byCategory
}
