package generation

import (
	"sort"
	"sync"
)

// CoverageTracker counts how often each learning objective has been
// targeted by accepted questions, so prompts can steer generation toward
// under-covered objectives.
type CoverageTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCoverageTracker seeds the tracker with every objective at zero.
func NewCoverageTracker(loIDs []string) *CoverageTracker {
	counts := make(map[string]int, len(loIDs))
	for _, id := range loIDs {
		counts[id] = 0
	}
	return &CoverageTracker{counts: counts}
}

// Record increments coverage for each referenced objective.
func (t *CoverageTracker) Record(loIDs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range loIDs {
		if _, tracked := t.counts[id]; tracked {
			t.counts[id]++
		}
	}
}

// Count returns how many accepted questions have targeted the objective.
func (t *CoverageTracker) Count(loID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[loID]
}

// PriorityLOs returns up to n objective ids from the given pool, least
// covered first. Ties break on id so the order is stable.
func (t *CoverageTracker) PriorityLOs(pool []string, n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := append([]string(nil), pool...)
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := t.counts[ids[i]], t.counts[ids[j]]
		if ci != cj {
			return ci < cj
		}
		return ids[i] < ids[j]
	})

	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}
