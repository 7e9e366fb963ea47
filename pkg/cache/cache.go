// Package cache provides response caching for the PyPI metadata client.
//
// Three backends are available:
//   - FileCache: entries on disk with TTL metadata, for normal CLI use
//   - RedisCache: shared cache for repeated large runs
//   - NullCache: no-op, for --no-cache and tests
//
// Caching is purely an optimization layer; a cold cache reproduces the
// same pipeline behavior as no cache at all.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the interface for cache backends.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
