package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRuns           = "indexer_runs_total"
	MetricRunFailures    = "indexer_run_failures_total"
	MetricRunDuration    = "indexer_run_duration_seconds"
	MetricPlayersIndexed = "indexer_players_indexed_total"
	MetricPlayersSkipped = "indexer_players_skipped_total"
)

// Metrics contains Prometheus metrics for the batch indexing job.
// All operations are thread-safe.
type Metrics struct {
	runs           prometheus.Counter
	runFailures    prometheus.Counter
	runDuration    prometheus.Histogram
	playersIndexed prometheus.Counter
	playersSkipped prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRuns,
			Help: "Total number of indexing runs started",
		}),
		runFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRunFailures,
			Help: "Total number of indexing runs that failed",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRunDuration,
			Help:    "Duration of indexing runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		playersIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPlayersIndexed,
			Help: "Total number of players upserted into the vector index",
		}),
		playersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPlayersSkipped,
			Help: "Total number of players skipped during indexing",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.runs,
		m.runFailures,
		m.runDuration,
		m.playersIndexed,
		m.playersSkipped,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
