package imagecache

import (
	"math"
	"sort"
	"time"
)

// PressureKind selects the eviction strategy.
type PressureKind int

const (
	// PressureRoutine is the proactive cleanup triggered by soft
	// thresholds and the maintenance loop.
	PressureRoutine PressureKind = iota
	// PressureEmergency is the host low-memory path.
	PressureEmergency
)

func (pk PressureKind) String() string {
	if pk == PressureEmergency {
		return "EMERGENCY"
	}
	return "ROUTINE"
}

// VictimSelector decides which entries to drop under pressure.
type VictimSelector interface {
	SelectVictims(now time.Time, entries []*Entry) []string
}

func selectorFor(kind PressureKind) VictimSelector {
	if kind == PressureEmergency {
		return emergencySelector{fraction: 0.5}
	}
	return routineSelector{fraction: 0.25}
}

// routineSelector scores entries by staleness over use: the time since
// last access divided by access count. A logo read on every screen stays
// cheap to keep no matter how old; a one-off read from last week goes
// first. The top quarter by score is dropped.
type routineSelector struct {
	fraction float64
}

func (s routineSelector) SelectVictims(now time.Time, entries []*Entry) []string {
	if len(entries) == 0 {
		return nil
	}

	type scored struct {
		key   string
		score float64
	}

	candidates := make([]scored, 0, len(entries))
	for _, e := range entries {
		count := e.AccessCount
		if count < 1 {
			count = 1
		}
		candidates = append(candidates, scored{
			key:   e.Key,
			score: float64(now.Sub(e.LastAccessedAt)) / float64(count),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := victimCount(len(candidates), s.fraction)
	keys := make([]string, 0, n)
	for _, c := range candidates[:n] {
		keys = append(keys, c.key)
	}
	return keys
}

// emergencySelector is pure LRU: access frequency is ignored because the
// host asked for memory back and freeing space fast is all that matters.
// The oldest half by last access is dropped.
type emergencySelector struct {
	fraction float64
}

func (s emergencySelector) SelectVictims(now time.Time, entries []*Entry) []string {
	if len(entries) == 0 {
		return nil
	}

	ordered := make([]*Entry, len(entries))
	copy(ordered, entries)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LastAccessedAt.Before(ordered[j].LastAccessedAt)
	})

	n := victimCount(len(ordered), s.fraction)
	keys := make([]string, 0, n)
	for _, e := range ordered[:n] {
		keys = append(keys, e.Key)
	}
	return keys
}

func victimCount(total int, fraction float64) int {
	n := int(math.Ceil(float64(total) * fraction))
	if n > total {
		n = total
	}
	return n
}
