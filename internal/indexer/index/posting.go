package index

import "github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/indexer/bigram"

// Posting records how often a bigram occurs in one query.
type Posting struct {
	QueryID int32
	Freq    int32
}

// PostingList is ordered by ascending QueryID.
type PostingList []Posting

type TermEntry struct {
	Bigram   bigram.Bigram
	Postings PostingList
}
