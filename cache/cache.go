/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package cache provides the read/write cache interposed between callers and
// storage backends.
//
// Two implementations are available:
//   - MapCache: unbounded map, entries live until invalidated
//   - LRUCache: size and/or time bounded, backed by hashicorp/golang-lru/v2
//
// Both are safe for concurrent use and never block on I/O.
package cache

// Cache is the capability set every storage cache offers.
type Cache[K comparable, V any] interface {
	// GetIfPresent returns the cached value and true, or the zero value and false.
	GetIfPresent(key K) (V, bool)

	// Put stores value under key, replacing any previous entry.
	Put(key K, value V)

	// PutAll stores every entry of values. Last write wins per key.
	PutAll(values map[K]V)

	// Invalidate drops the entry for key, if present.
	Invalidate(key K)

	// InvalidateAll drops every entry.
	InvalidateAll()

	// Contains reports whether key has a live entry.
	Contains(key K) bool

	// Size returns the number of live entries.
	Size() int

	// Snapshot returns a point-in-time copy of all live entries.
	Snapshot() map[K]V

	// CleanUp performs any pending eviction housekeeping. It may be a no-op.
	CleanUp()
}
