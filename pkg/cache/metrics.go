package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the cache store. Create it once
// per process; collectors register against the default registry.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	puts      prometheus.Counter
	evictions prometheus.Counter
}

// NewMetrics creates a Metrics instance with Prometheus collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		hits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "promptops_cache_hits_total",
			Help: "Total number of cache lookups that returned an entry",
		}),
		misses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "promptops_cache_misses_total",
			Help: "Total number of cache lookups that missed (absent, expired, or corrupt)",
		}),
		puts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "promptops_cache_puts_total",
			Help: "Total number of cache entries stored",
		}),
		evictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "promptops_cache_evictions_total",
			Help: "Total number of cache entries removed by sweeps, clears, and size cleanup",
		}),
	}
}

func (m *Metrics) observeHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) observeMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) observePut() {
	if m != nil {
		m.puts.Inc()
	}
}

func (m *Metrics) observeEvictions(n int64) {
	if m != nil && n > 0 {
		m.evictions.Add(float64(n))
	}
}
