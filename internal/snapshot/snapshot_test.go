package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"imagecache-service/internal/imagecache"
)

func sampleExport() imagecache.ExportData {
	now := time.Now().Truncate(time.Second)
	return imagecache.ExportData{
		ExportedAt: now,
		Backend:    "MEMORY",
		MaxSize:    100 << 20,
		MaxItems:   500,
		TTL:        "168h0m0s",
		Entries: []imagecache.Entry{
			{
				Key:            "2p",
				URI:            "https://cdn.example.com/a.jpg",
				SizeBytes:      100,
				CreatedAt:      now,
				LastAccessedAt: now,
				AccessCount:    1,
			},
			{
				Key:            "2e9",
				URI:            "https://cdn.example.com/b.jpg",
				SizeBytes:      200,
				CreatedAt:      now,
				LastAccessedAt: now,
				AccessCount:    3,
			},
		},
	}
}

func TestWriteThenLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	export := sampleExport()

	require.NoError(t, Write(dir, export))

	// One file per entry next to the index document.
	require.FileExists(t, filepath.Join(dir, "index.json"))
	require.FileExists(t, filepath.Join(dir, "entries", "2p.json"))
	require.FileExists(t, filepath.Join(dir, "entries", "2e9.json"))

	loaded, err := Load(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, export.Backend, loaded.Backend)
	require.Len(t, loaded.Entries, 2)
	require.Equal(t, export.Entries[0].URI, loaded.Entries[0].URI)
	require.EqualValues(t, 3, loaded.Entries[1].AccessCount)
}

func TestLoadRejectsSnapshotWithoutIndex(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	require.Error(t, err)
}
