package imagecache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreloadCachesAllURIs(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	uris := []string{
		"https://cdn.example.com/a_thumbnail.jpg",
		"https://cdn.example.com/b_medium.jpg",
		"https://cdn.example.com/c.jpg",
	}

	report := s.Preload(ctx, uris, PriorityHigh)
	require.Equal(t, 3, report.Requested)
	require.Equal(t, 3, report.Cached)
	require.Equal(t, 0, report.Skipped)
	require.EqualValues(t, (50+200+300)*1024, report.TotalSize)
	require.NotEmpty(t, report.OperationID)

	for _, uri := range uris {
		require.True(t, s.Contains(CacheKey(uri)))
	}
}

func TestPreloadSkipsAlreadyCachedWithoutTouchingStats(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	uri := "https://cdn.example.com/cached.jpg"
	s.SetURI(ctx, uri, 100)
	statsBefore := s.Stats()

	report := s.Preload(ctx, []string{uri, "https://cdn.example.com/fresh.jpg"}, PriorityHigh)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 1, report.Cached)

	// Skipping must not count as a hit or reset access metadata.
	statsAfter := s.Stats()
	require.Equal(t, statsBefore.Hits, statsAfter.Hits)
	require.Equal(t, statsBefore.Misses, statsAfter.Misses)
}

func TestPreloadStopsOnCancelledContext(t *testing.T) {
	s, _ := newTestService(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Low priority delays between items, so a cancelled context ends the
	// batch after the first URI instead of sleeping through the rest.
	report := s.Preload(ctx, []string{
		"https://cdn.example.com/1.jpg",
		"https://cdn.example.com/2.jpg",
		"https://cdn.example.com/3.jpg",
	}, PriorityLow)

	require.Equal(t, 1, report.Cached)
}

func TestPrefetchForScreenCachesInBatches(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	uris := []string{
		"https://cdn.example.com/feed/1.jpg",
		"https://cdn.example.com/feed/2.jpg",
		"https://cdn.example.com/feed/3.jpg",
		"https://cdn.example.com/feed/4.jpg",
		"https://cdn.example.com/feed/5.jpg",
		"https://cdn.example.com/feed/6.jpg",
		"https://cdn.example.com/feed/7.jpg",
	}

	report := s.PrefetchForScreen(ctx, "feed", uris)
	require.Equal(t, "feed", report.Screen)
	require.Equal(t, 7, report.Requested)
	require.Equal(t, 7, report.Cached+report.Skipped)

	for _, uri := range uris {
		require.True(t, s.Contains(CacheKey(uri)))
	}
}

func TestPriorityDelays(t *testing.T) {
	require.Equal(t, int64(0), PriorityHigh.delay().Milliseconds())
	require.Equal(t, int64(100), PriorityNormal.delay().Milliseconds())
	require.Equal(t, int64(500), PriorityLow.delay().Milliseconds())
	// Unknown priorities fall back to normal pacing.
	require.Equal(t, int64(100), Priority("frantic").delay().Milliseconds())
}
