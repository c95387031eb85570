package persistence

import "context"

// Backend is the key-value store the image cache persists itself to.
// Values are JSON documents: the serialized index under one well-known
// key, plus one record per cached entry.
//
// Implementations must treat an absent key as (_, false, nil), not as an
// error; the cache layers fail-open semantics on top of this contract and
// only counts genuine I/O failures.
type Backend interface {
	// Name identifies the backend in logs and diagnostics exports.
	Name() string
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key string, value string) error
	RemoveItem(ctx context.Context, key string) error
}
