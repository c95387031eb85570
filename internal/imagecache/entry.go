package imagecache

import (
	"encoding/json"
	"time"
)

const (
	// IndexRecordKey is the backend key holding the serialized index.
	IndexRecordKey = "imagecache:index"

	entryRecordPrefix = "imagecache:entry:"
)

// Entry is the bookkeeping record for one cached image. The cache stores
// resource URIs, never image bytes.
type Entry struct {
	Key            string    `json:"key"`
	URI            string    `json:"uri"`
	SizeBytes      int64     `json:"sizeBytes"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	AccessCount    int64     `json:"accessCount"`
}

// Stats is a point-in-time view of the cache, computed from in-memory
// state and never persisted.
type Stats struct {
	ItemCount    int     `json:"itemCount"`
	TotalSize    int64   `json:"totalSize"`
	MaxSize      int64   `json:"maxSize"`
	MaxItems     int     `json:"maxItems"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hitRate"`
	Evictions    int64   `json:"evictions"`
	Expirations  int64   `json:"expirations"`
	PersistFails int64   `json:"persistFails"`
}

func entryRecordKey(key string) string {
	return entryRecordPrefix + key
}

// encodeIndex serializes the full index as one JSON document. The index
// record fully replaces its previous content on every write.
func encodeIndex(entries map[string]*Entry) (string, error) {
	list := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeIndex parses a persisted index document. A malformed document is
// an error for the caller to treat as an empty cache.
func decodeIndex(value string) (map[string]*Entry, error) {
	var list []*Entry
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return nil, err
	}

	entries := make(map[string]*Entry, len(list))
	for _, e := range list {
		if e == nil || e.Key == "" {
			continue
		}
		entries[e.Key] = e
	}
	return entries, nil
}

func encodeEntry(e *Entry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
