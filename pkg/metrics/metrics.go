// Package metrics defines the Prometheus collectors of a matching run and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the matcher.
type Metrics struct {
	QueriesLoaded       prometheus.Counter
	ReferencesLoaded    prometheus.Counter
	IndexBigrams        prometheus.Gauge
	ReferencesScored    prometheus.Counter
	ReferencesDiscarded prometheus.Counter
	QueriesVerified     prometheus.Counter
	QueriesUnmapped     prometheus.Counter
	CandidatesSanitized prometheus.Counter
	CacheLookups        *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
	PhaseDuration       *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesLoaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_queries_loaded_total",
				Help: "Query lines read from the query corpus.",
			},
		),
		ReferencesLoaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_references_loaded_total",
				Help: "Reference lines read from the reference corpus.",
			},
		),
		IndexBigrams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "matcher_index_bigrams",
				Help: "Distinct bigrams in the query index.",
			},
		),
		ReferencesScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_references_scored_total",
				Help: "References scored against the query index.",
			},
		),
		ReferencesDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_references_discarded_total",
				Help: "References discarded for being shorter than two bytes.",
			},
		),
		QueriesVerified: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_queries_verified_total",
				Help: "Queries whose shortlist went through fuzzy verification.",
			},
		),
		QueriesUnmapped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_queries_unmapped_total",
				Help: "Queries with no candidate above the cutoff.",
			},
		),
		CandidatesSanitized: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_candidates_sanitized_total",
				Help: "Candidate renderings that had non-ASCII bytes replaced.",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matcher_cache_lookups_total",
				Help: "Verification cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matcher_events_published_total",
				Help: "Match events sent to the event sink by status (ok, dropped).",
			},
			[]string{"status"},
		),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matcher_phase_duration_seconds",
				Help:    "Wall time of each pipeline phase.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"phase"},
		),
	}

	reg.MustRegister(
		m.QueriesLoaded,
		m.ReferencesLoaded,
		m.IndexBigrams,
		m.ReferencesScored,
		m.ReferencesDiscarded,
		m.QueriesVerified,
		m.QueriesUnmapped,
		m.CandidatesSanitized,
		m.CacheLookups,
		m.EventsPublished,
		m.PhaseDuration,
	)

	return m
}

// ObservePhase records the wall time of one phase. Safe on a nil receiver
// so callers without metrics can skip the check.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
