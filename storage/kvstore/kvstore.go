// Package kvstore persists small JSON documents by key, the way a browser keeps its local storage.
package kvstore

import (
	"context"

	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("kvstore: key not found")

// Store is a durable key/value backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil) // interface compliance check
	_ Store = (*MemoryStore)(nil)
)
