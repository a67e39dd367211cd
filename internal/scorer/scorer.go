// Package scorer streams reference lines against a query bigram index and
// keeps, for every query, a bounded shortlist of the references sharing the
// most bigrams with it.
//
// Coverage between a query and a reference is the multiset intersection of
// their bigrams: each shared bigram contributes the smaller of its two
// counts. References are split into contiguous partitions scored by
// independent workers whose shortlists are merged pairwise at the end.
package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/indexer/bigram"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/shortlist"
)

// Options configures a Scorer.
type Options struct {
	// ShortlistSize is K, the number of candidates kept per query.
	ShortlistSize int
	// Workers is the number of reference partitions scored concurrently.
	Workers int
	// ProgressEvery logs progress after this many references; 0 disables.
	ProgressEvery int
}

// Result is the outcome of a scoring pass.
type Result struct {
	Shortlists shortlist.Set
	Scored     int
	Discarded  int
}

type Scorer struct {
	index  *index.BigramIndex
	opts   Options
	logger *slog.Logger
}

func New(idx *index.BigramIndex, opts Options) *Scorer {
	if opts.ShortlistSize < 1 {
		opts.ShortlistSize = 20
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Scorer{
		index:  idx,
		opts:   opts,
		logger: slog.Default().With("component", "scorer"),
	}
}

// Score runs every reference through the index and returns the merged
// per-query shortlists. The result is identical for any worker count.
func (s *Scorer) Score(ctx context.Context, refs [][]byte) (*Result, error) {
	parts := partition(len(refs), s.opts.Workers)
	workers := make([]*worker, len(parts))
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		w := s.newWorker()
		workers[i] = w
		g.Go(func() error {
			for refID := p.start; refID < p.end; refID++ {
				if refID%1024 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				w.score(refID, refs[refID])
				s.reportProgress(processed.Add(1), len(refs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring references: %w", err)
	}

	merged, err := mergeWorkers(ctx, workers)
	if err != nil {
		return nil, err
	}
	res := &Result{Shortlists: merged.lists}
	for _, w := range workers {
		res.Scored += w.scored
		res.Discarded += w.discarded
	}
	s.logger.Info("scoring complete",
		"references", humanize.Comma(int64(len(refs))),
		"scored", res.Scored,
		"discarded", res.Discarded,
		"partitions", len(parts),
	)
	return res, nil
}

func (s *Scorer) reportProgress(done int64, total int) {
	every := int64(s.opts.ProgressEvery)
	if every <= 0 || done%every != 0 {
		return
	}
	s.logger.Info("scoring progress",
		"processed", humanize.Comma(done),
		"total", humanize.Comma(int64(total)),
	)
}

func (s *Scorer) newWorker() *worker {
	n := s.index.QueryCount()
	return &worker{
		index:    s.index,
		coverage: make([]int32, n),
		freq:     make(bigram.Frequencies),
		lists:    shortlist.NewSet(n, s.opts.ShortlistSize),
		logger:   s.logger,
	}
}

// worker owns everything it writes: the coverage accumulator, the reference
// frequency map and one shortlist per query.
type worker struct {
	index     *index.BigramIndex
	coverage  []int32
	freq      bigram.Frequencies
	lists     shortlist.Set
	scored    int
	discarded int
	logger    *slog.Logger
}

func (w *worker) score(refID int, ref []byte) {
	if len(ref) <= 1 {
		w.discarded++
		w.logger.Warn("reference discarded, too short for bigrams",
			"ref_id", refID,
			"length", len(ref),
		)
		return
	}
	clear(w.coverage)
	bigram.Count(ref, w.freq)
	for bg, refFreq := range w.freq {
		for _, p := range w.index.Lookup(bg) {
			w.coverage[p.QueryID] += min(p.Freq, int32(refFreq))
		}
	}
	for queryID, cov := range w.coverage {
		if !w.index.Indexable(queryID) {
			continue
		}
		diff := len(ref) - w.index.QueryLen(queryID)
		if diff < 0 {
			diff = -diff
		}
		w.lists[queryID].InsertIfBetter(shortlist.Entry{
			RefID:      int32(refID),
			Coverage:   cov,
			LengthDiff: int32(diff),
		})
	}
	w.scored++
}
