package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileBackend stores each record as one JSON file under a base directory.
// Record keys contain ':' separators which are not filesystem-friendly,
// so they are flattened before use.
type FileBackend struct {
	basePath string
}

func NewFileBackend(basePath string) (*FileBackend, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create file backend directory")
	}
	return &FileBackend{basePath: basePath}, nil
}

func (fb *FileBackend) Name() string {
	return "FILESYSTEM"
}

func (fb *FileBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(fb.recordPath(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read record %s", key)
	}
	return string(data), true, nil
}

func (fb *FileBackend) SetItem(ctx context.Context, key string, value string) error {
	if err := os.WriteFile(fb.recordPath(key), []byte(value), 0644); err != nil {
		return errors.Wrapf(err, "failed to write record %s", key)
	}
	return nil
}

func (fb *FileBackend) RemoveItem(ctx context.Context, key string) error {
	err := os.Remove(fb.recordPath(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove record %s", key)
	}
	return nil
}

func (fb *FileBackend) recordPath(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(fb.basePath, name+".json")
}
