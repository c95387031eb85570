// Package snapshot writes cache diagnostics exports to disk and loads
// previously archived exports to warm-start a cold cache.
package snapshot

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mholt/archives"
	"github.com/pkg/errors"

	"imagecache-service/internal/imagecache"
)

const indexFileName = "index.json"

// Write stores an export as a directory: one index document plus one
// file per entry, so individual records stay greppable.
func Write(dir string, export imagecache.ExportData) error {
	entriesDir := filepath.Join(dir, "entries")
	if err := os.MkdirAll(entriesDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create snapshot directory")
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot index")
	}
	if err := os.WriteFile(filepath.Join(dir, indexFileName), data, 0644); err != nil {
		return errors.Wrap(err, "failed to write snapshot index")
	}

	for _, entry := range export.Entries {
		entryData, err := json.Marshal(entry)
		if err != nil {
			return errors.Wrapf(err, "failed to encode entry %s", entry.Key)
		}
		path := filepath.Join(entriesDir, entry.Key+".json")
		if err := os.WriteFile(path, entryData, 0644); err != nil {
			return errors.Wrapf(err, "failed to write entry %s", entry.Key)
		}
	}

	return nil
}

// Load reads the index document out of a snapshot archive (zip, tar, or
// any format the archives library recognizes) or a plain snapshot
// directory.
func Load(ctx context.Context, path string) (*imagecache.ExportData, error) {
	fsys, err := archives.FileSystem(ctx, path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot")
	}

	indexPath, err := findIndex(fsys)
	if err != nil {
		return nil, err
	}

	reader, err := fsys.Open(indexPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot index")
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot index")
	}

	var export imagecache.ExportData
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot index")
	}
	return &export, nil
}

// findIndex locates the index document anywhere in the archive, since
// archives are often rooted one directory deep.
func findIndex(fsys fs.FS) (string, error) {
	var found string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Base(path) == indexFileName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to scan snapshot")
	}
	if found == "" {
		return "", errors.New("snapshot has no index document")
	}
	return found, nil
}
