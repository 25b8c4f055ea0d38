package embedding

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricCacheHits      = "embedding_cache_hits_total"
	MetricCacheMisses    = "embedding_cache_misses_total"
	MetricCacheEvictions = "embedding_cache_evictions_total"
	MetricGatewayCalls   = "embedding_gateway_calls_total"
	MetricGatewayErrors  = "embedding_gateway_errors_total"
)

// Metrics contains Prometheus metrics for the embedding cache and gateway.
// All operations are thread-safe.
type Metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	gatewayCalls   prometheus.Counter
	gatewayErrors  prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheHits,
			Help: "Total number of embedding cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheMisses,
			Help: "Total number of embedding cache misses",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheEvictions,
			Help: "Total number of entries evicted from the in-process embedding cache",
		}),
		gatewayCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricGatewayCalls,
			Help: "Total number of calls made to the embedding gateway",
		}),
		gatewayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricGatewayErrors,
			Help: "Total number of embedding gateway call failures",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.cacheHits,
		m.cacheMisses,
		m.cacheEvictions,
		m.gatewayCalls,
		m.gatewayErrors,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
