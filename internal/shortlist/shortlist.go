// Package shortlist keeps the best K candidate references seen for a query.
//
// Candidates are ranked by coverage (higher first), then by length
// difference (lower first), then by reference ID (lower first). The last key
// makes the ranking a total order, so the retained set never depends on the
// order in which candidates or partial shortlists arrive.
package shortlist

import (
	"container/heap"
	"sort"
)

// Entry is one candidate reference for a query.
type Entry struct {
	RefID      int32
	Coverage   int32
	LengthDiff int32
}

// Better reports whether e ranks strictly ahead of other.
func (e Entry) Better(other Entry) bool {
	if e.Coverage != other.Coverage {
		return e.Coverage > other.Coverage
	}
	if e.LengthDiff != other.LengthDiff {
		return e.LengthDiff < other.LengthDiff
	}
	return e.RefID < other.RefID
}

// Shortlist is a bounded best-of-K selector. It is not safe for concurrent
// use; each scorer worker owns its own shortlists.
type Shortlist struct {
	capacity int
	h        entryHeap
}

// New returns an empty shortlist holding at most capacity entries.
func New(capacity int) *Shortlist {
	if capacity < 1 {
		panic("shortlist: capacity must be positive")
	}
	return &Shortlist{capacity: capacity}
}

// InsertIfBetter adds e when the shortlist has room, or replaces the worst
// retained entry when e ranks ahead of it. It reports whether e was kept.
func (s *Shortlist) InsertIfBetter(e Entry) bool {
	if len(s.h) < s.capacity {
		heap.Push(&s.h, e)
		return true
	}
	if !e.Better(s.h[0]) {
		return false
	}
	s.h[0] = e
	heap.Fix(&s.h, 0)
	return true
}

// Worst returns the lowest-ranked retained entry.
func (s *Shortlist) Worst() (Entry, bool) {
	if len(s.h) == 0 {
		return Entry{}, false
	}
	return s.h[0], true
}

// Merge offers every entry of other to s. other is left untouched.
func (s *Shortlist) Merge(other *Shortlist) {
	for _, e := range other.h {
		s.InsertIfBetter(e)
	}
}

func (s *Shortlist) Len() int { return len(s.h) }

func (s *Shortlist) Cap() int { return s.capacity }

// Entries returns a copy of the retained entries, best first.
func (s *Shortlist) Entries() []Entry {
	out := make([]Entry, len(s.h))
	copy(out, s.h)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Better(out[j])
	})
	return out
}

// Drain empties the shortlist and returns its entries, best first.
func (s *Shortlist) Drain() []Entry {
	out := make([]Entry, len(s.h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&s.h).(Entry)
	}
	s.h = nil
	return out
}

// entryHeap keeps the worst entry at index 0.
type entryHeap []Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return h[j].Better(h[i]) }

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(Entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
