package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/indexer/bigram"
)

func lines(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestBuild(t *testing.T) {
	idx := Build(lines("abab", "b", "", "bab"))

	assert.Equal(t, 4, idx.QueryCount())
	assert.Equal(t, 2, idx.IndexableCount())
	assert.Equal(t, 2, idx.Terms())
	assert.True(t, idx.Indexable(0))
	assert.False(t, idx.Indexable(1))
	assert.False(t, idx.Indexable(2))
	assert.Equal(t, 3, idx.QueryLen(3))

	assert.Equal(t, PostingList{
		{QueryID: 0, Freq: 2},
		{QueryID: 3, Freq: 1},
	}, idx.Lookup(bigram.Of('a', 'b')))
	assert.Equal(t, PostingList{
		{QueryID: 0, Freq: 1},
		{QueryID: 3, Freq: 1},
	}, idx.Lookup(bigram.Of('b', 'a')))
	assert.Nil(t, idx.Lookup(bigram.Of('z', 'z')))
}

func TestBuild_Empty(t *testing.T) {
	idx := Build(nil)
	assert.Zero(t, idx.QueryCount())
	assert.Zero(t, idx.Terms())
	assert.Empty(t, idx.Snapshot())
}

func TestSnapshotOrdered(t *testing.T) {
	idx := Build(lines("zyx", "abc"))
	snap := idx.Snapshot()
	require.Len(t, snap, 4)
	for i := 1; i < len(snap); i++ {
		assert.Less(t, snap[i-1].Bigram, snap[i].Bigram)
	}
	assert.Equal(t, int64(4*8), idx.Size())
}

// Postings must mirror the query's own bigram counts.
func TestPostingsMatchQueryFrequencies(t *testing.T) {
	queries := lines("mississippi", "banana", "aa", "abcabcabc")
	idx := Build(queries)

	for id, q := range queries {
		want := bigram.CountNew(q)
		got := make(bigram.Frequencies)
		for _, entry := range idx.Snapshot() {
			for _, p := range entry.Postings {
				if int(p.QueryID) == id {
					got[entry.Bigram] = int(p.Freq)
				}
			}
		}
		assert.Equal(t, want, got, "query %d", id)
	}
}
