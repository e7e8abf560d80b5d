// Package remotecache manages keys, TTLs and pre-warmed entries against
// a backing key-value store shared across processes.
package remotecache

import (
	"context"
	"time"
)

// Store is the narrow backing-store contract. The manager and the
// invalidator depend only on this, never on a concrete store. Absence
// is not an error: Get returns ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Put(ctx context.Context, key string, val []byte, ttl time.Duration) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
}
