package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has no stored value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable wraps backend failures (I/O, network).
	ErrUnavailable = errors.New("storage: backend unavailable")
	// ErrInvalidKey is returned for empty keys or keys a backend cannot represent.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Storage is a durable key-value surface. Implementations must be safe for
// concurrent use and must replace a value as a whole on Set.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
