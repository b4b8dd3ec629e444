package frontier

import (
	"sort"
	"sync"

	"exploration-planner/internal/grid"
)

// Tracker keeps frontier IDs stable across planning cycles. A new frontier
// inherits the ID of the previous frontier it shares the most cells with;
// frontiers with no overlap get a fresh ID. IDs are never reused.
type Tracker struct {
	mu     sync.Mutex
	prev   map[int]map[grid.Cell]struct{}
	nextID int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{prev: make(map[int]map[grid.Cell]struct{})}
}

type match struct {
	cur, prevID, overlap int
}

// Assign rewrites the IDs of fs in place and returns it.
func (t *Tracker) Assign(fs []Frontier) []Frontier {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matches []match
	for i, f := range fs {
		for id, cells := range t.prev {
			n := 0
			for _, c := range f.Cells {
				if _, ok := cells[c]; ok {
					n++
				}
			}
			if n > 0 {
				matches = append(matches, match{cur: i, prevID: id, overlap: n})
			}
		}
	}
	// Largest overlaps claim first; ties by lower previous ID, then index.
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.overlap != b.overlap {
			return a.overlap > b.overlap
		}
		if a.prevID != b.prevID {
			return a.prevID < b.prevID
		}
		return a.cur < b.cur
	})

	ids := make([]int, len(fs))
	for i := range ids {
		ids[i] = -1
	}
	claimed := make(map[int]bool)
	for _, m := range matches {
		if ids[m.cur] >= 0 || claimed[m.prevID] {
			continue
		}
		ids[m.cur] = m.prevID
		claimed[m.prevID] = true
	}

	next := make(map[int]map[grid.Cell]struct{}, len(fs))
	for i := range fs {
		if ids[i] < 0 {
			ids[i] = t.nextID
			t.nextID++
		}
		if ids[i] >= t.nextID {
			t.nextID = ids[i] + 1
		}
		fs[i].ID = ids[i]

		cells := make(map[grid.Cell]struct{}, len(fs[i].Cells))
		for _, c := range fs[i].Cells {
			cells[c] = struct{}{}
		}
		next[fs[i].ID] = cells
	}
	t.prev = next
	return fs
}

// Reset forgets all previous frontiers.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prev = make(map[int]map[grid.Cell]struct{})
}
