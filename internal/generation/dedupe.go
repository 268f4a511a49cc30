package generation

import (
	"strings"
	"sync"
	"unicode"
)

// DuplicateDetector suppresses near-duplicate question stems using
// Jaccard similarity over normalized word tokens. It holds the stems of
// accepted questions only. Safe for concurrent use.
type DuplicateDetector struct {
	mu        sync.Mutex
	threshold float64
	seen      []map[string]bool
}

// NewDuplicateDetector creates a detector. Stems whose token-set
// similarity to any previously added stem reaches threshold are
// reported as duplicates.
func NewDuplicateDetector(threshold float64) *DuplicateDetector {
	return &DuplicateDetector{threshold: threshold}
}

// Check reports whether stem duplicates a recorded one. It never
// records the stem itself; Add does that once the question is accepted.
func (d *DuplicateDetector) Check(stem string) bool {
	tokens := tokenize(stem)
	if len(tokens) == 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, prev := range d.seen {
		if jaccard(tokens, prev) >= d.threshold {
			return true
		}
	}
	return false
}

// Add records an accepted stem for future Check calls.
func (d *DuplicateDetector) Add(stem string) {
	tokens := tokenize(stem)
	if len(tokens) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, tokens)
}

// Len returns the number of recorded stems.
func (d *DuplicateDetector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
