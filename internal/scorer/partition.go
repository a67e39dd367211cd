package scorer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type span struct {
	start int
	end   int
}

// partition splits n items into at most parts contiguous, near-equal spans.
// It always returns at least one span so an empty corpus still yields a set
// of empty shortlists.
func partition(n, parts int) []span {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = max(n, 1)
	}
	spans := make([]span, 0, parts)
	size, rem := n/parts, n%parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < rem {
			end++
		}
		spans = append(spans, span{start: start, end: end})
		start = end
	}
	return spans
}

// mergeWorkers folds worker shortlists pairwise, level by level. Merges on
// the same level touch disjoint workers and run concurrently.
func mergeWorkers(ctx context.Context, workers []*worker) (*worker, error) {
	for step := 1; step < len(workers); step *= 2 {
		g, _ := errgroup.WithContext(ctx)
		for i := 0; i+step < len(workers); i += 2 * step {
			dst, src := workers[i], workers[i+step]
			g.Go(func() error {
				dst.lists.Merge(src.lists)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("merging shortlists: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("merging shortlists: %w", err)
		}
	}
	return workers[0], nil
}
