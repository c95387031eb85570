package persistence

import (
	"context"
	"sync"
)

// MemoryBackend keeps records in a plain map. It is the default backend
// for local development and the one the test suites run against.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]string),
	}
}

func (mb *MemoryBackend) Name() string {
	return "MEMORY"
}

func (mb *MemoryBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	value, ok := mb.records[key]
	return value, ok, nil
}

func (mb *MemoryBackend) SetItem(ctx context.Context, key string, value string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.records[key] = value
	return nil
}

func (mb *MemoryBackend) RemoveItem(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	delete(mb.records, key)
	return nil
}

// Len reports the number of stored records. Used by tests and the
// diagnostics export.
func (mb *MemoryBackend) Len() int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return len(mb.records)
}
