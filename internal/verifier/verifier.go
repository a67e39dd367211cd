// Package verifier picks the final reference for each query out of its
// shortlist using a partial-alignment similarity ratio combined with a
// length penalty.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/shortlist"
)

// NoMatch is the RefID of a Match for which no candidate cleared the cutoff.
const NoMatch = -1

// MaxScoreScale bounds ScoreScale so that ratio × scale stays well inside int.
const MaxScoreScale = 1e6

// scoreCeiling clamps the scaled ratio in CombinedScore.
const scoreCeiling = math.MaxInt32

// CheckScoreScale rejects scales that are negative, not finite or above
// MaxScoreScale.
func CheckScoreScale(scale float64) error {
	switch {
	case math.IsNaN(scale) || math.IsInf(scale, 0):
		return fmt.Errorf("score scale must be finite, got %g", scale)
	case scale < 0:
		return fmt.Errorf("score scale must not be negative, got %g", scale)
	case scale > MaxScoreScale:
		return fmt.Errorf("score scale must be at most %g, got %g", float64(MaxScoreScale), scale)
	}
	return nil
}

// Options configures a Verifier.
type Options struct {
	// Cutoff is the minimum PartialRatio a candidate needs, in [0,100].
	Cutoff int
	// ScoreScale weights the ratio against the length penalty.
	ScoreScale float64
	// Workers bounds the number of queries verified concurrently.
	Workers int
	// ProgressEvery logs progress after this many queries; 0 disables.
	ProgressEvery int
}

// Match is the verified outcome for one query.
type Match struct {
	RefID      int    `json:"ref_id"`
	Text       string `json:"text"`
	Ratio      int    `json:"ratio"`
	Score      int    `json:"score"`
	LengthDiff int    `json:"length_diff"`
}

// Found reports whether a candidate cleared the cutoff.
func (m Match) Found() bool { return m.RefID != NoMatch }

// Cache lets identical verification work be reused. compute is called when
// the key is not cached.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, compute func() (Match, error)) (Match, bool, error)
}

// KeyFunc derives the cache key for a query and its drained candidates.
type KeyFunc func(query []byte, candidates []shortlist.Entry, refs [][]byte, cutoff int, scale float64) string

// Result holds one Match per query, in query order.
type Result struct {
	Matches     []Match
	Unmapped    int
	Sanitized   int
	CacheHits   int
	CacheMisses int
}

type Verifier struct {
	refs   [][]byte
	opts   Options
	cache  Cache
	keyFn  KeyFunc
	warned sync.Map
	logger *slog.Logger

	sanitized atomic.Int64
}

func New(refs [][]byte, opts Options) *Verifier {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Verifier{
		refs:   refs,
		opts:   opts,
		logger: slog.Default().With("component", "verifier"),
	}
}

// WithCache routes every query through c using keyFn to build keys.
func (v *Verifier) WithCache(c Cache, keyFn KeyFunc) *Verifier {
	v.cache = c
	v.keyFn = keyFn
	return v
}

// Run drains every shortlist and verifies its query. Shortlists are consumed.
func (v *Verifier) Run(ctx context.Context, queries [][]byte, lists shortlist.Set) (*Result, error) {
	if len(queries) != len(lists) {
		return nil, fmt.Errorf("verifier: %d queries but %d shortlists", len(queries), len(lists))
	}
	v.sanitized.Store(0)
	matches := make([]Match, len(queries))
	var done, unmapped, hits, misses atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.opts.Workers)
	for i := range queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			candidates := lists[i].Drain()
			m, hit, err := v.verifyQuery(gctx, queries[i], candidates)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			matches[i] = m
			if !m.Found() {
				unmapped.Add(1)
			}
			switch {
			case hit:
				hits.Add(1)
			case v.cache != nil && len(candidates) > 0:
				misses.Add(1)
			}
			v.reportProgress(done.Add(1), len(queries))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verifying queries: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("verifying queries: %w", err)
	}

	res := &Result{
		Matches:     matches,
		Unmapped:    int(unmapped.Load()),
		Sanitized:   int(v.sanitized.Load()),
		CacheHits:   int(hits.Load()),
		CacheMisses: int(misses.Load()),
	}
	v.logger.Info("verification complete",
		"queries", humanize.Comma(int64(len(queries))),
		"unmapped", res.Unmapped,
		"sanitized_candidates", res.Sanitized,
		"cache_hits", res.CacheHits,
	)
	return res, nil
}

func (v *Verifier) verifyQuery(ctx context.Context, query []byte, candidates []shortlist.Entry) (Match, bool, error) {
	v.inspect(candidates)
	if v.cache == nil || len(candidates) == 0 {
		return v.Best(query, candidates), false, nil
	}
	key := v.keyFn(query, candidates, v.refs, v.opts.Cutoff, v.opts.ScoreScale)
	return v.cache.GetOrCompute(ctx, key, func() (Match, error) {
		return v.Best(query, candidates), nil
	})
}

// Best evaluates candidates in the order given and returns the winner. A
// candidate replaces the current best when its ratio reaches the cutoff and
// its combined score is higher, or equal with a smaller length difference.
func (v *Verifier) Best(query []byte, candidates []shortlist.Entry) Match {
	best := Match{RefID: NoMatch}
	queryText, _ := Sanitize(query)
	for _, c := range candidates {
		text := v.render(int(c.RefID))
		ratio := PartialRatio(text, queryText)
		if ratio < v.opts.Cutoff {
			continue
		}
		diff := len(text) - len(queryText)
		if diff < 0 {
			diff = -diff
		}
		score := CombinedScore(ratio, v.opts.ScoreScale, diff)
		if best.Found() && (score < best.Score || (score == best.Score && diff >= best.LengthDiff)) {
			continue
		}
		best = Match{
			RefID:      int(c.RefID),
			Text:       text,
			Ratio:      ratio,
			Score:      score,
			LengthDiff: diff,
		}
	}
	return best
}

// CombinedScore is round(ratio × scale) minus the length difference. The
// scaled ratio is clamped to ±scoreCeiling, so an out-of-range scale still
// ranks a smaller length difference higher.
func CombinedScore(ratio int, scale float64, lengthDiff int) int {
	scaled := math.Round(float64(ratio) * scale)
	switch {
	case !(scaled <= scoreCeiling):
		scaled = scoreCeiling
	case scaled < -scoreCeiling:
		scaled = -scoreCeiling
	}
	return int(scaled) - lengthDiff
}

func (v *Verifier) render(refID int) string {
	text, _ := Sanitize(v.refs[refID])
	return text
}

// inspect counts the candidates that need non-ASCII replacement and warns
// once per reference. It runs whether or not the match comes from the cache.
func (v *Verifier) inspect(candidates []shortlist.Entry) {
	for _, c := range candidates {
		refID := int(c.RefID)
		replaced := countNonASCII(v.refs[refID])
		if replaced == 0 {
			continue
		}
		v.sanitized.Add(1)
		if _, seen := v.warned.LoadOrStore(refID, struct{}{}); !seen {
			v.logger.Warn("non-ascii bytes replaced in candidate",
				"ref_id", refID,
				"replaced", replaced,
			)
		}
	}
}

func (v *Verifier) reportProgress(done int64, total int) {
	every := int64(v.opts.ProgressEvery)
	if every <= 0 || done%every != 0 {
		return
	}
	v.logger.Info("verification progress",
		"processed", humanize.Comma(done),
		"total", humanize.Comma(int64(total)),
	)
}
