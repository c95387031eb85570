package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the image cache.
type Metrics struct {
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	evictions         *prometheus.CounterVec
	expirations       prometheus.Counter
	persistenceErrors prometheus.Counter
	cacheSize         prometheus.Gauge
	cacheItemCount    prometheus.Gauge
	opLatency         *prometheus.HistogramVec
}

// New creates and registers all cache metrics. Pass a dedicated
// Registerer in tests; nil registers on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "image_cache_hits_total",
				Help: "Total number of cache hits",
			},
		),
		cacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "image_cache_misses_total",
				Help: "Total number of cache misses",
			},
		),
		evictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_cache_evictions_total",
				Help: "Total number of evicted entries",
			},
			[]string{"pressure"},
		),
		expirations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "image_cache_expirations_total",
				Help: "Total number of entries removed by TTL expiry",
			},
		),
		persistenceErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "image_cache_persistence_errors_total",
				Help: "Total number of swallowed persistence failures",
			},
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "image_cache_size_bytes",
				Help: "Current cache size in bytes",
			},
		),
		cacheItemCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "image_cache_item_count",
				Help: "Number of entries in the cache",
			},
		),
		opLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "image_cache_op_latency_ms",
				Help:    "Latency of cache operations in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"op"},
		),
	}
}

// IncrementCacheHits increments the cache hits counter.
func (m *Metrics) IncrementCacheHits() {
	m.cacheHits.Inc()
}

// IncrementCacheMisses increments the cache misses counter.
func (m *Metrics) IncrementCacheMisses() {
	m.cacheMisses.Inc()
}

// AddEvictions records evictions for a pressure kind.
func (m *Metrics) AddEvictions(pressure string, count int) {
	m.evictions.WithLabelValues(pressure).Add(float64(count))
}

// AddExpirations records TTL expirations.
func (m *Metrics) AddExpirations(count int) {
	m.expirations.Add(float64(count))
}

// AddPersistenceErrors records swallowed persistence failures.
func (m *Metrics) AddPersistenceErrors(count int) {
	m.persistenceErrors.Add(float64(count))
}

// SetCacheSize sets the current cache size.
func (m *Metrics) SetCacheSize(bytes int64) {
	m.cacheSize.Set(float64(bytes))
}

// SetCacheItemCount sets the number of cached entries.
func (m *Metrics) SetCacheItemCount(count int) {
	m.cacheItemCount.Set(float64(count))
}

// RecordOpLatency records the latency of one cache operation.
func (m *Metrics) RecordOpLatency(op string, milliseconds float64) {
	m.opLatency.WithLabelValues(op).Observe(milliseconds)
}
