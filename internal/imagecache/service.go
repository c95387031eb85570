package imagecache

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"imagecache-service/internal/persistence"
)

// Config controls cache capacity and maintenance behavior.
type Config struct {
	// MaxSizeBytes is the soft ceiling on the summed entry sizes.
	// Cleanup is reactive, so a single insert may briefly overshoot it.
	MaxSizeBytes int64
	// MaxItems is the soft ceiling on the entry count.
	MaxItems int
	// TTL is measured from creation, not last access: a frequently read
	// entry still expires at TTL. That behavior is deliberate.
	TTL time.Duration
	// CleanupInterval drives the maintenance loop. <= 0 disables it.
	CleanupInterval time.Duration
}

const (
	DefaultMaxSizeBytes    = 100 << 20
	DefaultMaxItems        = 500
	DefaultTTL             = 7 * 24 * time.Hour
	DefaultCleanupInterval = 30 * time.Minute

	// softThreshold is the fraction of either budget that triggers a
	// routine cleanup before the hard maximum is reached.
	softThreshold = 0.8
)

func (c Config) withDefaults() Config {
	if c.MaxSizeBytes <= 0 {
		c.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxItems
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}

// Service is the image cache: an in-memory index of Entry records,
// mirrored best-effort to a persistence backend. The in-memory index is
// authoritative; persistence failures degrade durability, never
// availability. No public operation returns an error: failures are
// logged, counted, and surface as misses or no-ops.
type Service struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	totalSize int64

	cfg     Config
	backend persistence.Backend

	hits         atomic.Int64
	misses       atomic.Int64
	evictions    atomic.Int64
	expirations  atomic.Int64
	persistFails atomic.Int64

	// Maintenance goroutine ownership. Close stops it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New constructs the service, loads the persisted index, and starts the
// maintenance loop when CleanupInterval is positive. A missing or corrupt
// index record starts the cache empty rather than failing construction.
func New(cfg Config, backend persistence.Backend) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		entries: make(map[string]*Entry),
		cfg:     cfg.withDefaults(),
		backend: backend,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.loadIndex(context.Background())

	if s.cfg.CleanupInterval > 0 {
		s.wg.Add(1)
		go s.maintenanceLoop()
	}

	return s
}

// Close stops the maintenance loop. Safe to call multiple times.
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	return nil
}

// Backend reports the persistence backend name for diagnostics.
func (s *Service) Backend() string {
	return s.backend.Name()
}

// Get resolves a cache key to its stored URI. A hit bumps the access
// metadata; an expired entry is removed and reported as a miss. Reads do
// not flush the index.
func (s *Service) Get(ctx context.Context, key string) (string, bool) {
	now := time.Now()

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		s.misses.Add(1)
		return "", false
	}

	if s.expired(e, now) {
		delete(s.entries, key)
		s.totalSize -= e.SizeBytes
		index, indexErr := encodeIndex(s.entries)
		s.mu.Unlock()

		s.expirations.Add(1)
		s.misses.Add(1)
		log.Printf("CACHE EXPIRED: %s (age %v)", key, now.Sub(e.CreatedAt))

		s.persistRemovals(ctx, []string{key})
		s.persistIndex(ctx, index, indexErr)
		return "", false
	}

	e.AccessCount++
	e.LastAccessedAt = now
	uri := e.URI
	s.mu.Unlock()

	s.hits.Add(1)
	return uri, true
}

// GetURI is Get keyed by the source URI.
func (s *Service) GetURI(ctx context.Context, uri string) (string, bool) {
	return s.Get(ctx, CacheKey(uri))
}

// Set inserts or fully replaces an entry. sizeBytes <= 0 falls back to
// the filename-hint estimate. When the insert would cross a soft
// threshold, a routine cleanup runs first.
func (s *Service) Set(ctx context.Context, key string, uri string, sizeBytes int64) {
	if sizeBytes <= 0 {
		sizeBytes = EstimateSize(uri)
	}
	now := time.Now()

	s.mu.Lock()
	var oldSize int64
	newItems := 1
	if existing, ok := s.entries[key]; ok {
		oldSize = existing.SizeBytes
		newItems = 0
	}

	var victims []string
	projectedSize := s.totalSize - oldSize + sizeBytes
	projectedCount := len(s.entries) + newItems
	if float64(projectedSize) > float64(s.cfg.MaxSizeBytes)*softThreshold ||
		float64(projectedCount) > float64(s.cfg.MaxItems)*softThreshold {
		victims = s.cleanupLocked(now, PressureRoutine)
	}

	e := &Entry{
		Key:            key,
		URI:            uri,
		SizeBytes:      sizeBytes,
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    1,
	}
	// Replace, never merge: the cleanup above may have evicted the old
	// entry under this key already.
	if prev, ok := s.entries[key]; ok {
		s.totalSize -= prev.SizeBytes
	}
	s.entries[key] = e
	s.totalSize += sizeBytes

	record, recordErr := encodeEntry(e)
	index, indexErr := encodeIndex(s.entries)
	s.mu.Unlock()

	s.persistRemovals(ctx, victims)

	if recordErr != nil {
		s.persistFails.Add(1)
		log.Printf("Image cache: failed to encode entry %s: %v", key, recordErr)
	} else if err := s.backend.SetItem(ctx, entryRecordKey(key), record); err != nil {
		s.persistFails.Add(1)
		log.Printf("Image cache: failed to persist entry %s: %v", key, err)
	}
	s.persistIndex(ctx, index, indexErr)
}

// SetURI is Set keyed by the source URI.
func (s *Service) SetURI(ctx context.Context, uri string, sizeBytes int64) string {
	key := CacheKey(uri)
	s.Set(ctx, key, uri, sizeBytes)
	return key
}

// Remove deletes an entry. Removing an absent key is a no-op in memory
// but still clears any stale persisted record.
func (s *Service) Remove(ctx context.Context, key string) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.totalSize -= e.SizeBytes
		delete(s.entries, key)
	}
	index, indexErr := encodeIndex(s.entries)
	s.mu.Unlock()

	s.persistRemovals(ctx, []string{key})
	s.persistIndex(ctx, index, indexErr)
}

// Clear drops every entry and resets the hit/miss/eviction counters. The
// persistence-failure counter survives as a diagnostic.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.entries = make(map[string]*Entry)
	s.totalSize = 0
	index, indexErr := encodeIndex(s.entries)
	s.mu.Unlock()

	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
	s.expirations.Store(0)

	log.Printf("Image cache: cleared %d entries", len(keys))

	s.persistRemovals(ctx, keys)
	s.persistIndex(ctx, index, indexErr)
}

// Contains reports whether a live entry exists without touching its
// access metadata or the hit/miss counters. Preload uses it to skip
// already-cached URIs without skewing stats.
func (s *Service) Contains(key string) bool {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return ok && !s.expired(e, now)
}

// Stats computes the current statistics from in-memory state.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	itemCount := len(s.entries)
	totalSize := s.totalSize
	s.mu.RUnlock()

	hits := s.hits.Load()
	misses := s.misses.Load()

	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return Stats{
		ItemCount:    itemCount,
		TotalSize:    totalSize,
		MaxSize:      s.cfg.MaxSizeBytes,
		MaxItems:     s.cfg.MaxItems,
		Hits:         hits,
		Misses:       misses,
		HitRate:      hitRate,
		Evictions:    s.evictions.Load(),
		Expirations:  s.expirations.Load(),
		PersistFails: s.persistFails.Load(),
	}
}

// Cleanup evicts entries under the given pressure kind and returns the
// number removed.
func (s *Service) Cleanup(ctx context.Context, kind PressureKind) int {
	s.mu.Lock()
	victims := s.cleanupLocked(time.Now(), kind)
	index, indexErr := encodeIndex(s.entries)
	s.mu.Unlock()

	if len(victims) > 0 {
		log.Printf("Image cache: %s cleanup evicted %d entries", kind, len(victims))
		s.persistRemovals(ctx, victims)
		s.persistIndex(ctx, index, indexErr)
	}
	return len(victims)
}

// HandleMemoryPressure is the host low-memory path: pure LRU over half
// the cache, ignoring access frequency.
func (s *Service) HandleMemoryPressure(ctx context.Context) int {
	log.Printf("Image cache: memory pressure signal received")
	return s.Cleanup(ctx, PressureEmergency)
}

func (s *Service) expired(e *Entry, now time.Time) bool {
	return now.Sub(e.CreatedAt) > s.cfg.TTL
}

// cleanupLocked runs the victim selector and drops the selected entries.
// Caller holds the write lock and is responsible for persisting the
// removals afterwards.
func (s *Service) cleanupLocked(now time.Time, kind PressureKind) []string {
	if len(s.entries) == 0 {
		return nil
	}

	snapshot := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		snapshot = append(snapshot, e)
	}

	victims := selectorFor(kind).SelectVictims(now, snapshot)
	for _, key := range victims {
		if e, ok := s.entries[key]; ok {
			s.totalSize -= e.SizeBytes
			delete(s.entries, key)
		}
	}
	s.evictions.Add(int64(len(victims)))
	return victims
}

// loadIndex restores the in-memory index from the backend. Any failure
// leaves the cache empty; a cache that forgets is better than a cache
// that crashes.
func (s *Service) loadIndex(ctx context.Context) {
	value, ok, err := s.backend.GetItem(ctx, IndexRecordKey)
	if err != nil {
		s.persistFails.Add(1)
		log.Printf("Image cache: failed to load index from %s: %v", s.backend.Name(), err)
		return
	}
	if !ok {
		return
	}

	entries, err := decodeIndex(value)
	if err != nil {
		log.Printf("Image cache: discarding malformed index record: %v", err)
		return
	}

	var total int64
	for _, e := range entries {
		total += e.SizeBytes
	}

	s.mu.Lock()
	s.entries = entries
	s.totalSize = total
	s.mu.Unlock()

	log.Printf("Image cache: restored %d entries (%d bytes) from %s", len(entries), total, s.backend.Name())
}

func (s *Service) persistIndex(ctx context.Context, index string, indexErr error) {
	if indexErr != nil {
		s.persistFails.Add(1)
		log.Printf("Image cache: failed to encode index: %v", indexErr)
		return
	}
	if err := s.backend.SetItem(ctx, IndexRecordKey, index); err != nil {
		s.persistFails.Add(1)
		log.Printf("Image cache: failed to persist index: %v", err)
	}
}

func (s *Service) persistRemovals(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.backend.RemoveItem(ctx, entryRecordKey(key)); err != nil {
			s.persistFails.Add(1)
			log.Printf("Image cache: failed to remove persisted entry %s: %v", key, err)
		}
	}
}
