package imagecache

import (
	"sort"
	"time"
)

// ExportData is the diagnostics snapshot returned by Export: current
// stats, configuration, and a copy of every live entry.
type ExportData struct {
	ExportedAt time.Time `json:"exportedAt"`
	Backend    string    `json:"backend"`
	MaxSize    int64     `json:"maxSize"`
	MaxItems   int       `json:"maxItems"`
	TTL        string    `json:"ttl"`
	Stats      Stats     `json:"stats"`
	Entries    []Entry   `json:"entries"`
}

// Export snapshots the cache for diagnostics. Entries are copied, so the
// snapshot stays stable while the cache keeps mutating.
func (s *Service) Export() ExportData {
	stats := s.Stats()

	s.mu.RLock()
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, *e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return ExportData{
		ExportedAt: time.Now(),
		Backend:    s.backend.Name(),
		MaxSize:    s.cfg.MaxSizeBytes,
		MaxItems:   s.cfg.MaxItems,
		TTL:        s.cfg.TTL.String(),
		Stats:      stats,
		Entries:    entries,
	}
}

// Seed inserts restored entries without resetting their bookkeeping, used
// by snapshot warm-start. Entries already present or past TTL are
// skipped; live totals are adjusted and the index re-persisted by the
// following Set-path operations.
func (s *Service) Seed(entries []Entry) int {
	now := time.Now()
	seeded := 0

	s.mu.Lock()
	for i := range entries {
		e := entries[i]
		if e.Key == "" || s.expired(&e, now) {
			continue
		}
		if _, ok := s.entries[e.Key]; ok {
			continue
		}
		copied := e
		s.entries[e.Key] = &copied
		s.totalSize += e.SizeBytes
		seeded++
	}
	s.mu.Unlock()

	return seeded
}
