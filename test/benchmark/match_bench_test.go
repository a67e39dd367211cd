package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/verifier"
)

// BenchmarkScore measures shortlist scoring with increasing worker counts.
func BenchmarkScore(b *testing.B) {
	idx := index.Build(corpusOf(1000, 1))
	refs := corpusOf(20000, 3)
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			s := scorer.New(idx, scorer.Options{ShortlistSize: 20, Workers: workers})
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Score(context.Background(), refs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPartialRatio measures the similarity ratio for different length
// pairings.
func BenchmarkPartialRatio(b *testing.B) {
	cases := []struct {
		name string
		a, b string
	}{
		{"equal_len", "distributed search", "distributed seerch"},
		{"short_in_long", "analytics", "search analytics platform with sharding"},
		{"no_overlap", "zzzzzzzz", "distributed search analytics platform"},
		{"long_pair", string(corpusOf(1, 4)[0]), string(corpusOf(1, 5)[0]) + string(corpusOf(1, 6)[0])},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = verifier.PartialRatio(c.a, c.b)
			}
		})
	}
}

// BenchmarkPipelineRun measures an end-to-end in-memory match.
func BenchmarkPipelineRun(b *testing.B) {
	queries := corpusOf(500, 7)
	refs := corpusOf(10000, 8)
	p := pipeline.New(pipeline.Options{
		Cutoff:        50,
		ScoreScale:    2.0,
		ShortlistSize: 20,
		Workers:       4,
		VerifyWorkers: 4,
	}, nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(context.Background(), queries, refs); err != nil {
			b.Fatal(err)
		}
	}
}
