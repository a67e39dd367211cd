// Package tracing times the phases of a run as a tree of spans carried in a
// context. The finished tree is written to slog, one record per span, and
// each span's duration can be handed to the phase histogram.
package tracing

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed phase. Children are appended concurrently by workers
// that start sub-phases from the same context.
type Span struct {
	Name     string
	RunID    string
	Start    time.Time
	Duration time.Duration

	parent   *Span
	mu       sync.Mutex
	ended    bool
	children []*Span
	attrs    []slog.Attr
}

// StartSpan begins a root span for runID and stores it in the returned
// context.
func StartSpan(ctx context.Context, name string, runID string) (context.Context, *Span) {
	span := &Span{
		Name:  name,
		RunID: runID,
		Start: time.Now(),
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan begins a span under the one in ctx. Without a parent the
// child is a detached root.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{
		Name:  name,
		Start: time.Now(),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		child.RunID = parent.RunID
		child.parent = parent
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

// End stops the clock and returns the span's duration. Later calls return
// the first measurement.
func (s *Span) End() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		s.Duration = time.Since(s.Start)
	}
	return s.Duration
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Children returns a snapshot of the direct sub-spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

// Path names the span by its ancestry, e.g. "run/match/score".
func (s *Span) Path() string {
	var names []string
	for sp := s; sp != nil; sp = sp.parent {
		names = append(names, sp.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// Walk visits s and its descendants depth first.
func (s *Span) Walk(fn func(span *Span, depth int)) {
	s.walk(fn, 0)
}

func (s *Span) walk(fn func(*Span, int), depth int) {
	fn(s, depth)
	for _, child := range s.Children() {
		child.walk(fn, depth+1)
	}
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(contextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Log writes the span tree to logger.
func (s *Span) Log(logger *slog.Logger) {
	s.Walk(func(span *Span, depth int) {
		span.mu.Lock()
		attrs := make([]slog.Attr, 0, len(span.attrs)+4)
		attrs = append(attrs,
			slog.String("run_id", span.RunID),
			slog.String("span", span.Path()),
			slog.Int64("duration_ms", span.Duration.Milliseconds()),
			slog.Int("depth", depth),
		)
		attrs = append(attrs, span.attrs...)
		span.mu.Unlock()
		logger.LogAttrs(context.Background(), slog.LevelInfo, "span", attrs...)
	})
}
