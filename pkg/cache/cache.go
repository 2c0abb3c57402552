// Package cache provides pluggable byte caching for remote service clients.
//
// # Overview
//
// Remote calls in the planning and imposition paths are cacheable: signed
// asset URLs are valid for minutes, and layout suggestions for identical
// inputs are deterministic on the remote side. This package provides the
// [Cache] interface plus several backends:
//
//   - [MemoryCache]: In-process map with TTL, the server default
//   - [FileCache]: File-based cache for CLI usage (~/.cache/gangrun/)
//   - [RedisCache]: Redis-backed cache for multi-instance deployments
//   - [NullCache]: No-op cache for tests and --no-cache runs
//
// # Keys
//
// Cache keys are built by a [Keyer] so that all call sites agree on the
// format and collisions across namespaces are impossible. Use
// [ScopedKeyer] to isolate tenants sharing one backend.
package cache

import (
	"context"
	"time"
)

// Cache stores byte values under string keys with per-entry TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
