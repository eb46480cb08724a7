// Package kv provides the key-value service the idea store is built on.
//
// Keys are plain strings, values opaque bytes. List returns keys in
// byte-lexicographic order, which is the queue order of the pipeline.
// CompareAndSwap is the only conditional write; there are no multi-key
// transactions.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get for a missing or expired key
var ErrKeyNotFound = errors.New("key not found")

// Store is a key-value service with optional per-key expiry.
// A ttl of zero means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	List(ctx context.Context, prefix string) ([]string, error)
	// CompareAndSwap writes next only if the current value equals old.
	// A nil old means the key must be absent or expired.
	CompareAndSwap(ctx context.Context, key string, old, next []byte, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Purger is implemented by backends that need expired entries removed
// explicitly rather than evicted by the server.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
