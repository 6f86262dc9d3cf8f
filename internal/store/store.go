// Package store defines the key-value port shared by the quota pipeline.
//
// The same store holds class mappings (written by the class resolver) and
// quota buckets (written by the external counting engine, only read here).
// Implementations must be safe for concurrent use and must not assume this
// process is the store's only client.
package store

import (
	"context"
	"time"
)

// Backend names accepted by configuration and CLI flags.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store abstracts the shared key-value backend.
type Store interface {
	// Get retrieves the stored value for a key.
	// Returns nil, nil if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value for a key with an expiration duration.
	// If ttl is 0, the key does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys enumerates all live keys starting with prefix. The order is
	// unspecified. A key returned here may still expire before a
	// subsequent Get; callers must tolerate that race.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
