// Package storage holds the blob backends experience memory persists to.
// Every backend stores one opaque document; callers rewrite it in full on
// each mutation.
package storage

import "github.com/pkg/errors"

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("storage: document not found")

// Backend loads and saves a single serialized document.
type Backend interface {
	Load() ([]byte, error)
	Save(data []byte) error
	// Location describes where the document lives, for log lines.
	Location() string
}
