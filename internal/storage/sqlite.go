package storage

import (
	"database/sql"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores the document as one row of a key/payload table, so
// several stores can share a database file under different keys.
type SQLiteBackend struct {
	path string
	key  string
	db   *sql.DB
}

func NewSQLiteBackend(path, key string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if key == "" {
		return nil, errors.New("sqlite document key is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping sqlite %s", path)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create documents table")
	}
	return &SQLiteBackend{path: path, key: key, db: db}, nil
}

func (s *SQLiteBackend) Location() string { return s.path + "#" + s.key }

func (s *SQLiteBackend) Load() ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM documents WHERE key = ?`, s.key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "load %s", s.key)
	}
	return payload, nil
}

func (s *SQLiteBackend) Save(data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (key, payload)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload
	`, s.key, data)
	return errors.Wrapf(err, "save %s", s.key)
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
