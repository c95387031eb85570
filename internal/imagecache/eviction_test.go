package imagecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeEntry(key string, lastAccess time.Time, accessCount int64) *Entry {
	return &Entry{
		Key:            key,
		URI:            "https://cdn.example.com/" + key + ".jpg",
		SizeBytes:      100,
		CreatedAt:      lastAccess.Add(-time.Hour),
		LastAccessedAt: lastAccess,
		AccessCount:    accessCount,
	}
}

func TestRoutineSelectorPrefersStaleInfrequentEntries(t *testing.T) {
	now := time.Now()

	// "logo" is old but read constantly; "banner" was read once long
	// ago. The staleness/frequency ratio must evict banner first.
	entries := []*Entry{
		makeEntry("logo", now.Add(-24*time.Hour), 500),
		makeEntry("banner", now.Add(-24*time.Hour), 1),
		makeEntry("avatar", now.Add(-time.Minute), 3),
		makeEntry("photo", now.Add(-time.Hour), 2),
	}

	victims := routineSelector{fraction: 0.25}.SelectVictims(now, entries)
	require.Len(t, victims, 1) // ceil(4 * 0.25)
	require.Equal(t, "banner", victims[0])
}

func TestRoutineSelectorVictimCountRoundsUp(t *testing.T) {
	now := time.Now()

	var entries []*Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, makeEntry(string(rune('a'+i)), now.Add(-time.Duration(i)*time.Hour), 1))
	}

	victims := routineSelector{fraction: 0.25}.SelectVictims(now, entries)
	require.Len(t, victims, 2) // ceil(5 * 0.25)
}

func TestEmergencySelectorIgnoresAccessCount(t *testing.T) {
	now := time.Now()

	entries := []*Entry{
		makeEntry("oldest", now.Add(-4*time.Hour), 1000),
		makeEntry("old", now.Add(-3*time.Hour), 999),
		makeEntry("recent", now.Add(-2*time.Minute), 1),
		makeEntry("newest", now.Add(-time.Minute), 1),
	}

	victims := emergencySelector{fraction: 0.5}.SelectVictims(now, entries)
	require.Len(t, victims, 2) // ceil(4 * 0.5)
	require.ElementsMatch(t, []string{"oldest", "old"}, victims)
}

func TestSelectorsHandleEmptyInput(t *testing.T) {
	now := time.Now()
	require.Empty(t, routineSelector{fraction: 0.25}.SelectVictims(now, nil))
	require.Empty(t, emergencySelector{fraction: 0.5}.SelectVictims(now, nil))
}

func TestSelectorFor(t *testing.T) {
	require.IsType(t, routineSelector{}, selectorFor(PressureRoutine))
	require.IsType(t, emergencySelector{}, selectorFor(PressureEmergency))
	require.Equal(t, "ROUTINE", PressureRoutine.String())
	require.Equal(t, "EMERGENCY", PressureEmergency.String())
}
