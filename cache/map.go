/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import "sync"

// MapCache is an unbounded cache. Entries are only removed by invalidation,
// which makes it suitable as the authoritative copy of write-deferred stores.
type MapCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewMap creates an empty MapCache.
func NewMap[K comparable, V any]() *MapCache[K, V] {
	return &MapCache[K, V]{entries: make(map[K]V)}
}

// GetIfPresent returns the value stored under key.
func (c *MapCache[K, V]) GetIfPresent(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores value under key.
func (c *MapCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

// PutAll stores every entry of values under a single lock.
func (c *MapCache[K, V]) PutAll(values map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.entries[k] = v
	}
}

// Invalidate removes key.
func (c *MapCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll removes every entry.
func (c *MapCache[K, V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[K]V)
	c.mu.Unlock()
}

// Contains reports whether key is present.
func (c *MapCache[K, V]) Contains(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Size returns the number of entries.
func (c *MapCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot copies the current entries.
func (c *MapCache[K, V]) Snapshot() map[K]V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[K]V, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// CleanUp is a no-op: MapCache never evicts.
func (*MapCache[K, V]) CleanUp() {}
