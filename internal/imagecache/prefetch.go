package imagecache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority paces a preload batch. Lower priorities yield between items so
// foreground work keeps the persistence backend to itself.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

func (p Priority) delay() time.Duration {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 500 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}

// prefetchBatchSize bounds concurrent in-flight persistence writes during
// screen prefetch.
const prefetchBatchSize = 3

// PreloadReport summarizes one preload or prefetch operation.
type PreloadReport struct {
	OperationID string  `json:"operationId"`
	Screen      string  `json:"screen,omitempty"`
	Requested   int     `json:"requested"`
	Cached      int     `json:"cached"`
	Skipped     int     `json:"skipped"`
	TotalSize   int64   `json:"totalSize"`
	DurationMs  float64 `json:"durationMs"`
}

// Summary returns a human-readable one-liner for logs.
func (pr *PreloadReport) Summary() string {
	return fmt.Sprintf("Preload %s: %d requested, %d cached, %d skipped, %.2f KB in %.2f ms",
		pr.OperationID, pr.Requested, pr.Cached, pr.Skipped,
		float64(pr.TotalSize)/1024, pr.DurationMs)
}

// Preload caches a list of URIs sequentially, pacing by priority.
// Already-cached URIs are skipped without touching their access
// metadata. A problem with one URI never aborts the batch.
func (s *Service) Preload(ctx context.Context, uris []string, priority Priority) *PreloadReport {
	report := &PreloadReport{
		OperationID: uuid.NewString(),
		Requested:   len(uris),
	}
	startTime := time.Now()
	delay := priority.delay()

	log.Printf("Image cache: preload %s started for %d URIs (priority %s)",
		report.OperationID, len(uris), priority)

	for i, uri := range uris {
		key := CacheKey(uri)
		if s.Contains(key) {
			report.Skipped++
		} else {
			size := EstimateSize(uri)
			s.Set(ctx, key, uri, size)
			report.Cached++
			report.TotalSize += size
		}

		if delay > 0 && i < len(uris)-1 {
			select {
			case <-ctx.Done():
				log.Printf("Image cache: preload %s stopped early: %v", report.OperationID, ctx.Err())
				report.DurationMs = float64(time.Since(startTime).Microseconds()) / 1000.0
				return report
			case <-time.After(delay):
			}
		}
	}

	report.DurationMs = float64(time.Since(startTime).Microseconds()) / 1000.0
	log.Printf("%s", report.Summary())
	return report
}

// PrefetchForScreen warms the cache for a screen's image set in fixed
// batches, waiting for each batch to settle before starting the next so
// in-flight persistence writes stay bounded.
func (s *Service) PrefetchForScreen(ctx context.Context, screen string, uris []string) *PreloadReport {
	report := &PreloadReport{
		OperationID: uuid.NewString(),
		Screen:      screen,
		Requested:   len(uris),
	}
	startTime := time.Now()

	log.Printf("Image cache: prefetch %s for screen %q (%d URIs)", report.OperationID, screen, len(uris))

	var mu sync.Mutex
	for start := 0; start < len(uris); start += prefetchBatchSize {
		end := start + prefetchBatchSize
		if end > len(uris) {
			end = len(uris)
		}

		var wg sync.WaitGroup
		for _, uri := range uris[start:end] {
			wg.Add(1)
			go func(uri string) {
				defer wg.Done()

				key := CacheKey(uri)
				if s.Contains(key) {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					return
				}

				size := EstimateSize(uri)
				s.Set(ctx, key, uri, size)
				mu.Lock()
				report.Cached++
				report.TotalSize += size
				mu.Unlock()
			}(uri)
		}
		wg.Wait()
	}

	report.DurationMs = float64(time.Since(startTime).Microseconds()) / 1000.0
	log.Printf("%s", report.Summary())
	return report
}
