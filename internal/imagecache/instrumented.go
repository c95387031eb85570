package imagecache

import (
	"context"
	"sync"
	"time"

	"imagecache-service/internal/metrics"
)

// InstrumentedService wraps Service with Prometheus metrics collection.
// The core service stays metric-free; this decorator mirrors its counters
// into the registry after every operation it fronts.
type InstrumentedService struct {
	*Service
	metrics *metrics.Metrics

	mu       sync.Mutex
	lastSeen Stats
}

// NewInstrumentedService decorates a cache service with metrics.
func NewInstrumentedService(service *Service, m *metrics.Metrics) *InstrumentedService {
	is := &InstrumentedService{
		Service: service,
		metrics: m,
	}
	is.syncCounters()
	return is
}

func (is *InstrumentedService) Get(ctx context.Context, key string) (string, bool) {
	startTime := time.Now()
	uri, ok := is.Service.Get(ctx, key)
	is.metrics.RecordOpLatency("get", float64(time.Since(startTime).Microseconds())/1000.0)

	if ok {
		is.metrics.IncrementCacheHits()
	} else {
		is.metrics.IncrementCacheMisses()
	}
	is.syncCounters()
	return uri, ok
}

func (is *InstrumentedService) GetURI(ctx context.Context, uri string) (string, bool) {
	return is.Get(ctx, CacheKey(uri))
}

func (is *InstrumentedService) Set(ctx context.Context, key string, uri string, sizeBytes int64) {
	startTime := time.Now()
	is.Service.Set(ctx, key, uri, sizeBytes)
	is.metrics.RecordOpLatency("set", float64(time.Since(startTime).Microseconds())/1000.0)
	is.syncCounters()
}

func (is *InstrumentedService) SetURI(ctx context.Context, uri string, sizeBytes int64) string {
	key := CacheKey(uri)
	is.Set(ctx, key, uri, sizeBytes)
	return key
}

func (is *InstrumentedService) Remove(ctx context.Context, key string) {
	is.Service.Remove(ctx, key)
	is.syncCounters()
}

func (is *InstrumentedService) Clear(ctx context.Context) {
	is.Service.Clear(ctx)
	is.resetBaseline()
}

func (is *InstrumentedService) Preload(ctx context.Context, uris []string, priority Priority) *PreloadReport {
	report := is.Service.Preload(ctx, uris, priority)
	is.syncCounters()
	return report
}

func (is *InstrumentedService) PrefetchForScreen(ctx context.Context, screen string, uris []string) *PreloadReport {
	report := is.Service.PrefetchForScreen(ctx, screen, uris)
	is.syncCounters()
	return report
}

func (is *InstrumentedService) HandleMemoryPressure(ctx context.Context) int {
	removed := is.Service.HandleMemoryPressure(ctx)
	if removed > 0 {
		is.metrics.AddEvictions(PressureEmergency.String(), removed)
	}

	// Advance the baseline past the emergency evictions so syncCounters
	// doesn't re-report them under the routine label.
	is.mu.Lock()
	is.lastSeen.Evictions += int64(removed)
	is.mu.Unlock()

	is.syncCounters()
	return removed
}

func (is *InstrumentedService) RunMaintenance(ctx context.Context) {
	is.Service.runMaintenance(ctx)
	is.syncCounters()
}

// syncCounters mirrors the service's cumulative counters into Prometheus
// as deltas, and refreshes the gauges.
func (is *InstrumentedService) syncCounters() {
	stats := is.Service.Stats()

	is.mu.Lock()
	last := is.lastSeen
	is.lastSeen = stats
	is.mu.Unlock()

	is.metrics.SetCacheSize(stats.TotalSize)
	is.metrics.SetCacheItemCount(stats.ItemCount)

	// Cumulative counters only move forward between syncs; Clear resets
	// the baseline instead of reporting a negative delta.
	if d := stats.Evictions - last.Evictions; d > 0 {
		is.metrics.AddEvictions(PressureRoutine.String(), int(d))
	}
	if d := stats.Expirations - last.Expirations; d > 0 {
		is.metrics.AddExpirations(int(d))
	}
	if d := stats.PersistFails - last.PersistFails; d > 0 {
		is.metrics.AddPersistenceErrors(int(d))
	}
}

func (is *InstrumentedService) resetBaseline() {
	stats := is.Service.Stats()

	is.mu.Lock()
	is.lastSeen = stats
	is.mu.Unlock()

	is.metrics.SetCacheSize(stats.TotalSize)
	is.metrics.SetCacheItemCount(stats.ItemCount)
}
