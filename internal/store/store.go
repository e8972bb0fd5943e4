// Package store provides the local cache the lead pipeline writes to before
// any remote forward.
package store

import (
	"context"
)

// Cache is a key-value store of opaque documents.
type Cache interface {
	// Get returns the value stored under key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// UpdateFunc receives the current value (nil when absent) and returns the
// replacement.
type UpdateFunc func(current []byte) ([]byte, error)

// Updater is implemented by caches that can run a read-modify-write of one
// key atomically.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
