package index

import (
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/indexer/bigram"
)

// BigramIndex is an inverted index from query bigrams to per-query term
// frequencies. It is built once by Build and never written afterwards, so
// concurrent readers need no locking.
type BigramIndex struct {
	postings  map[bigram.Bigram]PostingList
	queryLens []int
	indexable int
	size      int64
}

// Build indexes the given queries. Query IDs are positions in the slice.
// Queries shorter than two bytes get no postings.
func Build(queries [][]byte) *BigramIndex {
	idx := &BigramIndex{
		postings:  make(map[bigram.Bigram]PostingList),
		queryLens: make([]int, len(queries)),
	}
	freq := make(bigram.Frequencies)
	for i, query := range queries {
		idx.queryLens[i] = len(query)
		if bigram.Count(query, freq) == 0 {
			continue
		}
		idx.indexable++
		for bg, count := range freq {
			idx.postings[bg] = append(idx.postings[bg], Posting{
				QueryID: int32(i),
				Freq:    int32(count),
			})
			idx.size += 8
		}
	}
	slog.Default().With("component", "bigram-index").Debug("index built",
		"queries", len(queries),
		"indexable_queries", idx.indexable,
		"bigrams", len(idx.postings),
		"posting_bytes", idx.size,
	)
	return idx
}

// Lookup returns the postings for b, or nil when no query contains it.
func (x *BigramIndex) Lookup(b bigram.Bigram) PostingList {
	return x.postings[b]
}

// QueryCount is the number of queries the index was built from, including
// those too short to carry bigrams.
func (x *BigramIndex) QueryCount() int {
	return len(x.queryLens)
}

// QueryLen returns the byte length of query id.
func (x *BigramIndex) QueryLen(id int) int {
	return x.queryLens[id]
}

// Indexable reports whether query id has at least one bigram.
func (x *BigramIndex) Indexable(id int) bool {
	return x.queryLens[id] >= 2
}

// IndexableCount is the number of queries with at least one bigram.
func (x *BigramIndex) IndexableCount() int {
	return x.indexable
}

// Terms returns the number of distinct bigrams in the index.
func (x *BigramIndex) Terms() int {
	return len(x.postings)
}

// Size approximates the posting storage in bytes.
func (x *BigramIndex) Size() int64 {
	return x.size
}

// Snapshot returns every bigram with its postings, ordered by bigram.
func (x *BigramIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.postings))
	for bg, postings := range x.postings {
		entries = append(entries, TermEntry{
			Bigram:   bg,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Bigram < entries[j].Bigram
	})
	return entries
}
