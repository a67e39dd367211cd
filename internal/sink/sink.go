// Package sink publishes final query matches as events in fixed-size
// batches. Publishing is best-effort: a batch that still fails after retries
// is dropped and counted, and the run carries on.
package sink

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/verifier"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/pkg/resilience"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// MatchEvent is the payload published for each query.
type MatchEvent struct {
	QueryIndex int    `json:"query_index"`
	Query      string `json:"query"`
	Reference  string `json:"reference"`
	Matched    bool   `json:"matched"`
	RefID      int    `json:"ref_id"`
	Ratio      int    `json:"ratio"`
	Score      int    `json:"score"`
}

// NewMatchEvent builds the event for query i.
func NewMatchEvent(i int, query []byte, m verifier.Match) MatchEvent {
	return MatchEvent{
		QueryIndex: i,
		Query:      string(query),
		Reference:  m.Text,
		Matched:    m.Found(),
		RefID:      m.RefID,
		Ratio:      m.Ratio,
		Score:      m.Score,
	}
}

type BatchSink struct {
	publisher Publisher
	batchSize int
	retry     resilience.RetryConfig
	buffer    []kafka.Event
	published int
	dropped   int
	logger    *slog.Logger
}

func NewBatchSink(publisher Publisher, batchSize int, retry resilience.RetryConfig) *BatchSink {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BatchSink{
		publisher: publisher,
		batchSize: batchSize,
		retry:     retry,
		buffer:    make([]kafka.Event, 0, batchSize),
		logger:    slog.Default().With("component", "match-sink"),
	}
}

// Track buffers ev and publishes the buffer once it reaches the batch size.
func (s *BatchSink) Track(ctx context.Context, ev MatchEvent) {
	s.buffer = append(s.buffer, kafka.Event{
		Key:   strconv.Itoa(ev.QueryIndex),
		Value: ev,
	})
	if len(s.buffer) >= s.batchSize {
		s.Flush(ctx)
	}
}

// Flush publishes whatever is buffered.
func (s *BatchSink) Flush(ctx context.Context) {
	if len(s.buffer) == 0 {
		return
	}
	batch := s.buffer
	s.buffer = make([]kafka.Event, 0, s.batchSize)
	err := resilience.Retry(ctx, "publish-matches", s.retry, func() error {
		return s.publisher.PublishBatch(ctx, batch)
	})
	if err != nil {
		s.dropped += len(batch)
		s.logger.Error("match batch dropped",
			"batch_size", len(batch),
			"error", err,
		)
		return
	}
	s.published += len(batch)
	s.logger.Debug("match batch published", "events", len(batch))
}

// PublishAll tracks one event per query and flushes the remainder.
func (s *BatchSink) PublishAll(ctx context.Context, queries [][]byte, matches []verifier.Match) {
	for i, m := range matches {
		s.Track(ctx, NewMatchEvent(i, queries[i], m))
	}
	s.Flush(ctx)
	s.logger.Info("match events published",
		"published", s.published,
		"dropped", s.dropped,
	)
}

// Stats returns the number of events published and dropped so far.
func (s *BatchSink) Stats() (published, dropped int) {
	return s.published, s.dropped
}
