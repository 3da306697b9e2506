package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileBackend keeps the document in a flat file, rewritten on every Save.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Location() string { return f.path }

func (f *FileBackend) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "read %s", f.path)
	}
	return data, nil
}

// Save writes to a sibling temp file and renames it over the target so a
// crash mid-write never leaves a truncated document behind.
func (f *FileBackend) Save(data []byte) error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory for %s", f.path)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "replace %s", f.path)
	}
	return nil
}
