package matchmaking

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSearches          = "matchmaking_searches_total"
	MetricSearchFailures    = "matchmaking_search_failures_total"
	MetricSearchDuration    = "matchmaking_search_duration_seconds"
	MetricCandidatesScored  = "matchmaking_candidates_scored_total"
	MetricCandidatesDropped = "matchmaking_candidates_dropped_total"
)

// Metrics contains Prometheus metrics for the matchmaking pipeline.
// All operations are thread-safe.
type Metrics struct {
	searches          prometheus.Counter
	searchFailures    *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	candidatesScored  prometheus.Counter
	candidatesDropped prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSearches,
			Help: "Total number of candidate searches run",
		}),
		searchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearchFailures,
			Help: "Total number of failed candidate searches by failure kind",
		}, []string{"kind"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchDuration,
			Help:    "Duration of candidate searches in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		candidatesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCandidatesScored,
			Help: "Total number of candidates scored across all searches",
		}),
		candidatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCandidatesDropped,
			Help: "Total number of retrieved candidates dropped before ranking",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.searches,
		m.searchFailures,
		m.searchDuration,
		m.candidatesScored,
		m.candidatesDropped,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
