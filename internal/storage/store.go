// Package storage provides the key-value persistence backends used by the repositories.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key
var ErrNotFound = errors.New("storage: key not found")

// Store is a string-keyed blob store.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key builds the per-user storage key for a namespace
func Key(namespace, userID string) string {
	return namespace + "-" + userID
}
