// Package kv is the small key-value layer behind the invocation lease.
// The daemon points it at a shared Valkey instance so the
// one-invocation-at-a-time rule holds across restarts and replicas;
// tests and single-node setups use the in-memory store. Callers never
// see which backend is in play.
package kv

import (
	"context"
	"time"
)

// Store defines a minimal key-value interface.
// Keys are strings, values are byte slices. All operations support TTL.
type Store interface {
	// Set stores a value with the given key and TTL.
	// If TTL is 0, the key does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key. Returns ErrNotFound if key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Returns nil if key doesn't exist.
	Delete(ctx context.Context, key string) error

	// SetNX sets a value only if the key doesn't exist (atomic).
	// Returns true if the key was set, false if it already existed.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// CompareAndDelete removes the key only if it currently holds value
	// (atomic). Returns true if the key was deleted, false if it was
	// absent or held a different value.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)

	// Close closes the connection to the store.
	Close() error
}
