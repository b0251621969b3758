// Package storage provides the persistent key-value layer used to cache
// client state between runs.
package storage

import "errors"

var (
	// ErrNotFound is returned by a Backend when a key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned by a Backend used after Close.
	ErrClosed = errors.New("storage closed")
)

// Backend is a byte-oriented key-value medium. Implementations must be safe
// for concurrent use.
type Backend interface {
	Put(key string, value []byte) error
	// Get returns ErrNotFound (possibly wrapped) when the key is absent.
	Get(key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	Clear() error
	Keys() ([]string, error)
}
