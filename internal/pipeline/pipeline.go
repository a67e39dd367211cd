// Package pipeline runs the two matching stages end to end: index the
// queries, shortlist references by bigram coverage, then verify each
// shortlist with the fuzzy ratio. Results come back in query order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/verifier"
	apperrors "github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/tracing"
)

type Options struct {
	Cutoff              int
	ScoreScale          float64
	ShortlistSize       int
	Workers             int
	VerifyWorkers       int
	ProgressEvery       int
	VerifyProgressEvery int
}

// Validate checks the run parameters.
func (o Options) Validate() error {
	if o.Cutoff < 0 || o.Cutoff > 100 {
		return apperrors.Newf(apperrors.ErrInvalidArgument, apperrors.ExitUsage,
			"cutoff must be in [0,100], got %d", o.Cutoff)
	}
	if err := verifier.CheckScoreScale(o.ScoreScale); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, apperrors.ExitUsage, err, "invalid options")
	}
	if o.ShortlistSize < 1 {
		return apperrors.Newf(apperrors.ErrInvalidArgument, apperrors.ExitUsage,
			"shortlist size must be positive, got %d", o.ShortlistSize)
	}
	return nil
}

// Summary counts what happened during a run.
type Summary struct {
	Queries          int
	IndexableQueries int
	References       int
	Scored           int
	Discarded        int
	Unmapped         int
	Sanitized        int
	CacheHits        int
	CacheMisses      int
}

type Result struct {
	Matches []verifier.Match
	Summary Summary
}

// References returns the matched reference text per query, empty where
// unmapped.
func (r *Result) References() []string {
	out := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Text
	}
	return out
}

type Pipeline struct {
	opts    Options
	metrics *metrics.Metrics
	cache   verifier.Cache
	keyFn   verifier.KeyFunc
	logger  *slog.Logger
}

// New builds a pipeline. m may be nil.
func New(opts Options, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "pipeline"),
	}
}

// WithCache makes the verification stage reuse cached matches.
func (p *Pipeline) WithCache(c verifier.Cache, keyFn verifier.KeyFunc) *Pipeline {
	p.cache = c
	p.keyFn = keyFn
	return p
}

// Run matches every query against refs. Both slices are only read.
func (p *Pipeline) Run(ctx context.Context, queries, refs [][]byte) (*Result, error) {
	if err := p.opts.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartChildSpan(ctx, "match")
	defer span.End()

	_, indexSpan := tracing.StartChildSpan(ctx, "index")
	idx := index.Build(queries)
	indexSpan.SetAttr("bigrams", idx.Terms())
	p.metrics.ObservePhase("index", indexSpan.End())
	p.logger.Info("queries indexed",
		"queries", humanize.Comma(int64(len(queries))),
		"indexable", idx.IndexableCount(),
		"bigrams", idx.Terms(),
	)

	scoreCtx, scoreSpan := tracing.StartChildSpan(ctx, "score")
	scored, err := scorer.New(idx, scorer.Options{
		ShortlistSize: p.opts.ShortlistSize,
		Workers:       p.opts.Workers,
		ProgressEvery: p.opts.ProgressEvery,
	}).Score(scoreCtx, refs)
	if err != nil {
		return nil, fmt.Errorf("shortlisting: %w", err)
	}
	scoreSpan.SetAttr("discarded", scored.Discarded)
	p.metrics.ObservePhase("score", scoreSpan.End())

	verifyCtx, verifySpan := tracing.StartChildSpan(ctx, "verify")
	v := verifier.New(refs, verifier.Options{
		Cutoff:        p.opts.Cutoff,
		ScoreScale:    p.opts.ScoreScale,
		Workers:       p.opts.VerifyWorkers,
		ProgressEvery: p.opts.VerifyProgressEvery,
	})
	if p.cache != nil {
		v.WithCache(p.cache, p.keyFn)
	}
	verified, err := v.Run(verifyCtx, queries, scored.Shortlists)
	if err != nil {
		return nil, fmt.Errorf("verifying: %w", err)
	}
	verifySpan.SetAttr("unmapped", verified.Unmapped)
	p.metrics.ObservePhase("verify", verifySpan.End())

	res := &Result{
		Matches: verified.Matches,
		Summary: Summary{
			Queries:          len(queries),
			IndexableQueries: idx.IndexableCount(),
			References:       len(refs),
			Scored:           scored.Scored,
			Discarded:        scored.Discarded,
			Unmapped:         verified.Unmapped,
			Sanitized:        verified.Sanitized,
			CacheHits:        verified.CacheHits,
			CacheMisses:      verified.CacheMisses,
		},
	}
	p.record(res.Summary, idx.Terms())
	return res, nil
}

func (p *Pipeline) record(s Summary, bigrams int) {
	if p.metrics == nil {
		return
	}
	p.metrics.IndexBigrams.Set(float64(bigrams))
	p.metrics.ReferencesScored.Add(float64(s.Scored))
	p.metrics.ReferencesDiscarded.Add(float64(s.Discarded))
	p.metrics.QueriesVerified.Add(float64(s.Queries))
	p.metrics.QueriesUnmapped.Add(float64(s.Unmapped))
	p.metrics.CandidatesSanitized.Add(float64(s.Sanitized))
	if p.cache != nil {
		p.metrics.CacheLookups.WithLabelValues("hit").Add(float64(s.CacheHits))
		p.metrics.CacheLookups.WithLabelValues("miss").Add(float64(s.CacheMisses))
	}
}
