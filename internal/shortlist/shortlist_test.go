package shortlist

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomEntries(r *rand.Rand, n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{
			RefID:      int32(i),
			Coverage:   int32(r.IntN(6)),
			LengthDiff: int32(r.IntN(4)),
		}
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// topK is the reference selector: sort everything, keep the first k.
func topK(entries []Entry, k int) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Better(sorted[j]) })
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

func TestEntryBetter(t *testing.T) {
	base := Entry{RefID: 5, Coverage: 3, LengthDiff: 2}
	assert.True(t, Entry{RefID: 9, Coverage: 4, LengthDiff: 9}.Better(base))
	assert.True(t, Entry{RefID: 9, Coverage: 3, LengthDiff: 1}.Better(base))
	assert.True(t, Entry{RefID: 4, Coverage: 3, LengthDiff: 2}.Better(base))
	assert.False(t, base.Better(base))
	assert.False(t, Entry{RefID: 6, Coverage: 3, LengthDiff: 2}.Better(base))
}

func TestInsertIfBetter_MatchesSortAndTruncate(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	for _, k := range []int{1, 3, 20} {
		for _, n := range []int{0, 1, 5, 50, 200} {
			entries := randomEntries(r, n)
			s := New(k)
			for _, e := range entries {
				s.InsertIfBetter(e)
			}
			assert.Equal(t, min(n, k), s.Len())
			assert.Equal(t, topK(entries, k), s.Entries(), "k=%d n=%d", k, n)
		}
	}
}

func TestInsertIfBetter_Rejects(t *testing.T) {
	s := New(2)
	require.True(t, s.InsertIfBetter(Entry{RefID: 0, Coverage: 5}))
	require.True(t, s.InsertIfBetter(Entry{RefID: 1, Coverage: 4}))

	assert.False(t, s.InsertIfBetter(Entry{RefID: 2, Coverage: 4}), "tie on coverage and diff loses to lower ref id")
	assert.False(t, s.InsertIfBetter(Entry{RefID: 3, Coverage: 1}))
	assert.True(t, s.InsertIfBetter(Entry{RefID: 4, Coverage: 5}))

	worst, ok := s.Worst()
	require.True(t, ok)
	assert.Equal(t, Entry{RefID: 4, Coverage: 5}, worst)
}

func TestMerge_OrderIndependent(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	entries := randomEntries(r, 100)
	want := topK(entries, 10)

	for _, cut := range []int{0, 13, 50, 99, 100} {
		left, right := New(10), New(10)
		for _, e := range entries[:cut] {
			left.InsertIfBetter(e)
		}
		for _, e := range entries[cut:] {
			right.InsertIfBetter(e)
		}
		right.Merge(left)
		assert.Equal(t, want, right.Entries(), "cut=%d", cut)
	}
}

func TestDrain(t *testing.T) {
	s := New(3)
	for _, e := range []Entry{
		{RefID: 0, Coverage: 1},
		{RefID: 1, Coverage: 3},
		{RefID: 2, Coverage: 2},
		{RefID: 3, Coverage: 0},
	} {
		s.InsertIfBetter(e)
	}
	got := s.Drain()
	assert.Equal(t, []int32{1, 2, 0}, []int32{got[0].RefID, got[1].RefID, got[2].RefID})
	assert.Zero(t, s.Len())
	_, ok := s.Worst()
	assert.False(t, ok)
}

func TestNew_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}

func TestSetMerge(t *testing.T) {
	a, b := NewSet(2, 1), NewSet(2, 1)
	a[0].InsertIfBetter(Entry{RefID: 0, Coverage: 1})
	b[0].InsertIfBetter(Entry{RefID: 1, Coverage: 2})
	b[1].InsertIfBetter(Entry{RefID: 1, Coverage: 0})

	a.Merge(b)
	assert.Equal(t, []Entry{{RefID: 1, Coverage: 2}}, a[0].Entries())
	assert.Equal(t, []Entry{{RefID: 1, Coverage: 0}}, a[1].Entries())
}
