// Package cache provides generic, thread-safe caches with pluggable eviction.
//
// Two implementations are offered:
//   - LRU: size-bounded, least-recently-used eviction
//   - Hybrid: combined size bound and time-to-live expiry
//
// All caches collect statistics unconditionally and can additionally export
// Prometheus metrics via functional options.
package cache

import (
	"time"

	"github.com/apicomponents/blob-collection/errors"
)

// Cache is the interface satisfied by all cache implementations.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found.
	Get(key string) (V, bool)

	// Set stores a value. Returns true if a new entry was created,
	// false if an existing entry was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries.
	Size() int

	// Keys returns all keys currently in the cache.
	Keys() []string

	// Stats returns the cache's statistics tracker.
	Stats() *Statistics

	// Close releases cache resources (background goroutines, if any).
	Close() error
}

// EvictCallback is invoked when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// Entry describes a cache entry with its metadata.
type Entry[V any] struct {
	Key       string
	Value     V
	CreatedAt time.Time
	ExpiresAt *time.Time // nil means no expiration
}

// IsExpired reports whether the entry has expired.
func (e *Entry[V]) IsExpired() bool {
	if e.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*e.ExpiresAt)
}

// validateKey checks basic key requirements shared by all implementations.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
