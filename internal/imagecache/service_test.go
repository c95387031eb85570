package imagecache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"imagecache-service/internal/persistence"
)

func newTestService(t *testing.T, cfg Config) (*Service, *persistence.MemoryBackend) {
	t.Helper()

	backend := persistence.NewMemoryBackend()
	cfg.CleanupInterval = 0 // tests drive maintenance explicitly
	s := New(cfg, backend)
	t.Cleanup(func() { s.Close() })
	return s, backend
}

func TestSetReplacesExistingEntry(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	s.Set(ctx, "k", "https://cdn.example.com/a.jpg", 100)
	s.Set(ctx, "k", "https://cdn.example.com/b.jpg", 150)

	uri, ok := s.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/b.jpg", uri)

	s.mu.RLock()
	e := s.entries["k"]
	s.mu.RUnlock()
	// 1 from the replacing insert plus 1 from the read: the second set
	// must have reset the count, not merged it.
	require.EqualValues(t, 2, e.AccessCount)
	require.EqualValues(t, 150, s.Stats().TotalSize)
}

func TestGetIncrementsAccessMetadata(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	s.Set(ctx, "k", "https://cdn.example.com/logo.png", 100)

	for i := 0; i < 3; i++ {
		uri, ok := s.Get(ctx, "k")
		require.True(t, ok)
		require.Equal(t, "https://cdn.example.com/logo.png", uri)
	}

	s.mu.RLock()
	e := s.entries["k"]
	s.mu.RUnlock()
	require.EqualValues(t, 4, e.AccessCount)
	require.False(t, e.LastAccessedAt.Before(e.CreatedAt))
	require.EqualValues(t, 3, s.Stats().Hits)
}

func TestGetMissOnAbsentKey(t *testing.T) {
	s, _ := newTestService(t, Config{})

	_, ok := s.Get(context.Background(), "never-set")
	require.False(t, ok)

	stats := s.Stats()
	require.EqualValues(t, 1, stats.Misses)
	require.EqualValues(t, 0, stats.Hits)
}

func TestExpiredEntryRemovedOnGet(t *testing.T) {
	s, _ := newTestService(t, Config{TTL: 7 * 24 * time.Hour})
	ctx := context.Background()

	s.Set(ctx, "k", "https://cdn.example.com/old.jpg", 100)

	// Age the entry past the TTL. Expiry is from creation, so a recent
	// access would not save it.
	s.mu.Lock()
	s.entries["k"].CreatedAt = time.Now().Add(-(7*24*time.Hour + time.Millisecond))
	s.mu.Unlock()

	_, ok := s.Get(ctx, "k")
	require.False(t, ok)

	s.mu.RLock()
	_, present := s.entries["k"]
	s.mu.RUnlock()
	require.False(t, present)

	stats := s.Stats()
	require.EqualValues(t, 1, stats.Misses)
	require.EqualValues(t, 1, stats.Expirations)
	require.EqualValues(t, 0, stats.TotalSize)
}

func TestThresholdTriggeredEviction(t *testing.T) {
	s, _ := newTestService(t, Config{MaxItems: 10, MaxSizeBytes: 1 << 40})
	ctx := context.Background()

	original := []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9"}
	for i, key := range original {
		s.Set(ctx, key, "https://cdn.example.com/img.jpg", int64(100+i))
	}
	s.Set(ctx, "k10", "https://cdn.example.com/new.jpg", 100)

	require.True(t, s.Contains("k10"), "the newly inserted entry must survive")
	require.LessOrEqual(t, s.Stats().ItemCount, 10)

	gone := 0
	for _, key := range original {
		if !s.Contains(key) {
			gone++
		}
	}
	require.GreaterOrEqual(t, gone, 2, "threshold cleanup must have evicted some of the earlier entries")
	require.GreaterOrEqual(t, s.Stats().Evictions, int64(2))
}

func TestMemoryPressureEvictsOldestHalf(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	now := time.Now()
	for i, key := range []string{"a", "b", "c", "d"} {
		s.Set(ctx, key, "https://cdn.example.com/img.jpg", 100)
		s.mu.Lock()
		s.entries[key].LastAccessedAt = now.Add(time.Duration(i) * time.Hour)
		s.mu.Unlock()
	}

	// Give the oldest entry a huge access count: the emergency path must
	// ignore frequency entirely.
	s.mu.Lock()
	s.entries["a"].AccessCount = 1000
	s.mu.Unlock()

	removed := s.HandleMemoryPressure(ctx)
	require.Equal(t, 2, removed)

	require.False(t, s.Contains("a"))
	require.False(t, s.Contains("b"))
	require.True(t, s.Contains("c"))
	require.True(t, s.Contains("d"))
}

func TestClearIsIdempotent(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	s.Set(ctx, "a", "https://cdn.example.com/a.jpg", 100)
	s.Get(ctx, "a")
	s.Get(ctx, "missing")

	for i := 0; i < 2; i++ {
		s.Clear(ctx)

		stats := s.Stats()
		require.Equal(t, 0, stats.ItemCount)
		require.EqualValues(t, 0, stats.TotalSize)
		require.EqualValues(t, 0, stats.Hits)
		require.EqualValues(t, 0, stats.Misses)
		require.EqualValues(t, 0, stats.Evictions)
	}
}

func TestStatsScenario(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	s.Set(ctx, "a", "https://cdn.example.com/a.jpg", 100)
	s.Set(ctx, "b", "https://cdn.example.com/b.jpg", 200)
	s.Set(ctx, "c", "https://cdn.example.com/c.jpg", 300)

	stats := s.Stats()
	require.EqualValues(t, 600, stats.TotalSize)
	require.Equal(t, 3, stats.ItemCount)

	s.Remove(ctx, "b")
	stats = s.Stats()
	require.EqualValues(t, 400, stats.TotalSize)
	require.Equal(t, 2, stats.ItemCount)

	missesBefore := stats.Misses
	_, ok := s.Get(ctx, "b")
	require.False(t, ok)
	require.Equal(t, missesBefore+1, s.Stats().Misses)
}

func TestSizeEstimationFromURIHints(t *testing.T) {
	s, _ := newTestService(t, Config{})
	ctx := context.Background()

	s.Set(ctx, "t", "https://cdn.example.com/photo_thumbnail.jpg", 0)
	s.Set(ctx, "m", "https://cdn.example.com/photo_medium.jpg", 0)
	s.Set(ctx, "l", "https://cdn.example.com/photo_large.jpg", 0)
	s.Set(ctx, "d", "https://cdn.example.com/photo.jpg", 0)

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.EqualValues(t, 50*1024, s.entries["t"].SizeBytes)
	require.EqualValues(t, 200*1024, s.entries["m"].SizeBytes)
	require.EqualValues(t, 800*1024, s.entries["l"].SizeBytes)
	require.EqualValues(t, 300*1024, s.entries["d"].SizeBytes)
}

func TestIndexSurvivesRestart(t *testing.T) {
	backend := persistence.NewMemoryBackend()
	ctx := context.Background()

	s1 := New(Config{}, backend)
	s1.Set(ctx, "a", "https://cdn.example.com/a.jpg", 100)
	s1.Set(ctx, "b", "https://cdn.example.com/b.jpg", 200)
	require.NoError(t, s1.Close())

	s2 := New(Config{}, backend)
	defer s2.Close()

	uri, ok := s2.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/a.jpg", uri)

	stats := s2.Stats()
	require.Equal(t, 2, stats.ItemCount)
	require.EqualValues(t, 300, stats.TotalSize)
}

func TestCorruptIndexStartsEmpty(t *testing.T) {
	backend := persistence.NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, backend.SetItem(ctx, IndexRecordKey, "{not json"))

	s := New(Config{}, backend)
	defer s.Close()

	require.Equal(t, 0, s.Stats().ItemCount)

	// The cache must stay fully usable afterwards.
	s.Set(ctx, "a", "https://cdn.example.com/a.jpg", 100)
	_, ok := s.Get(ctx, "a")
	require.True(t, ok)
}

// failingBackend errors on every operation, standing in for a broken
// persistence layer.
type failingBackend struct{}

func (failingBackend) Name() string { return "FAILING" }

func (failingBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func (failingBackend) SetItem(ctx context.Context, key string, value string) error {
	return errors.New("backend down")
}

func (failingBackend) RemoveItem(ctx context.Context, key string) error {
	return errors.New("backend down")
}

func TestPersistenceFailuresAreSwallowed(t *testing.T) {
	s := New(Config{}, failingBackend{})
	defer s.Close()
	ctx := context.Background()

	// Every public operation must keep working on in-memory state alone.
	s.Set(ctx, "a", "https://cdn.example.com/a.jpg", 100)
	uri, ok := s.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/a.jpg", uri)

	s.Remove(ctx, "a")
	require.False(t, s.Contains("a"))

	s.Set(ctx, "b", "https://cdn.example.com/b.jpg", 100)
	s.Clear(ctx)
	require.Equal(t, 0, s.Stats().ItemCount)

	require.Greater(t, s.Stats().PersistFails, int64(0))
}

func TestEntryRecordsPersistedAndRemoved(t *testing.T) {
	s, backend := newTestService(t, Config{})
	ctx := context.Background()

	s.Set(ctx, "a", "https://cdn.example.com/a.jpg", 100)

	_, ok, err := backend.GetItem(ctx, entryRecordKey("a"))
	require.NoError(t, err)
	require.True(t, ok, "set must persist a per-entry record")

	_, ok, err = backend.GetItem(ctx, IndexRecordKey)
	require.NoError(t, err)
	require.True(t, ok, "set must persist the index record")

	s.Remove(ctx, "a")
	_, ok, err = backend.GetItem(ctx, entryRecordKey("a"))
	require.NoError(t, err)
	require.False(t, ok, "remove must delete the per-entry record")
}
