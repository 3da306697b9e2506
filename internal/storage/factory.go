package storage

import "github.com/pkg/errors"

const (
	KindFile   = "file"
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// NewBackend picks a backend by kind. For sqlite, key selects the row
// inside the shared database at path.
func NewBackend(kind, path, key string) (Backend, error) {
	switch kind {
	case "", KindFile:
		if path == "" {
			return nil, errors.New("file backend requires a path")
		}
		return NewFileBackend(path), nil
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindSQLite:
		backend, err := NewSQLiteBackend(path, key)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, errors.Errorf("unsupported storage backend: %s", kind)
	}
}

// CloseIfSupported closes backends that hold open handles.
func CloseIfSupported(b Backend) error {
	closer, ok := b.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
