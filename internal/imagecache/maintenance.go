package imagecache

import (
	"context"
	"log"
	"time"
)

// maintenanceLoop is the only unsolicited mutation path: every tick it
// relieves size pressure if a soft threshold is crossed, then sweeps the
// whole index for expired entries regardless of pressure.
func (s *Service) maintenanceLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runMaintenance(s.ctx)
		}
	}
}

// runMaintenance executes one maintenance pass. Exposed to the handlers
// so a pass can also be forced from the diagnostics surface.
func (s *Service) runMaintenance(ctx context.Context) {
	s.mu.RLock()
	totalSize := s.totalSize
	itemCount := len(s.entries)
	s.mu.RUnlock()

	if float64(totalSize) > float64(s.cfg.MaxSizeBytes)*softThreshold ||
		float64(itemCount) > float64(s.cfg.MaxItems)*softThreshold {
		s.Cleanup(ctx, PressureRoutine)
	}

	s.sweepExpired(ctx)
}

// sweepExpired removes every entry past its TTL. Expiry is measured from
// creation, so a hot entry still goes at exactly TTL.
func (s *Service) sweepExpired(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var removed []string
	for key, e := range s.entries {
		if s.expired(e, now) {
			s.totalSize -= e.SizeBytes
			delete(s.entries, key)
			removed = append(removed, key)
		}
	}
	var index string
	var indexErr error
	if len(removed) > 0 {
		index, indexErr = encodeIndex(s.entries)
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return
	}

	s.expirations.Add(int64(len(removed)))
	log.Printf("Image cache: maintenance expired %d entries", len(removed))

	s.persistRemovals(ctx, removed)
	s.persistIndex(ctx, index, indexErr)
}
