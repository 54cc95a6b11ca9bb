/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultTTL is the expire-after-write duration of the default storage cache.
const DefaultTTL = 10 * time.Minute

type stamped[V any] struct {
	value   V
	written time.Time
}

// LRUCache bounds entries by count and by age since the last write.
//
// The underlying LRU is built without a TTL so it starts no reaper goroutine.
// Expired entries are hidden from reads and swept by CleanUp, which writes
// also run at most once per TTL.
type LRUCache[K comparable, V any] struct {
	mu        sync.Mutex // serializes writes with sweeps
	lru       *expirable.LRU[K, stamped[V]]
	ttl       time.Duration
	nextSweep time.Time
}

// NewLRU creates a cache holding at most size entries, each expiring ttl after
// it was written. A size of 0 disables the count bound; a ttl of 0 disables expiry.
func NewLRU[K comparable, V any](size int, ttl time.Duration) *LRUCache[K, V] {
	if size < 0 {
		size = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRUCache[K, V]{lru: expirable.NewLRU[K, stamped[V]](size, nil, 0), ttl: ttl}
}

// NewDefault creates the cache storages use when none is configured:
// unbounded in size, entries expire DefaultTTL after their last write.
func NewDefault[K comparable, V any]() *LRUCache[K, V] {
	return NewLRU[K, V](0, DefaultTTL)
}

func (c *LRUCache[K, V]) live(e stamped[V]) bool {
	return c.ttl == 0 || time.Since(e.written) < c.ttl
}

// GetIfPresent returns the live value stored under key.
func (c *LRUCache[K, V]) GetIfPresent(key K) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok || !c.live(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key and resets its expiry.
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.maybeSweep(now)
	c.lru.Add(key, stamped[V]{value: value, written: now})
}

// PutAll stores every entry of values.
func (c *LRUCache[K, V]) PutAll(values map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.maybeSweep(now)
	for k, v := range values {
		c.lru.Add(k, stamped[V]{value: v, written: now})
	}
}

// Invalidate removes key.
func (c *LRUCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// InvalidateAll removes every entry.
func (c *LRUCache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Contains reports whether key has a live entry.
func (c *LRUCache[K, V]) Contains(key K) bool {
	e, ok := c.lru.Peek(key)
	return ok && c.live(e)
}

// Size returns the number of live entries.
func (c *LRUCache[K, V]) Size() int {
	n := 0
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && c.live(e) {
			n++
		}
	}
	return n
}

// Snapshot copies the live entries without touching their recency.
func (c *LRUCache[K, V]) Snapshot() map[K]V {
	keys := c.lru.Keys()
	out := make(map[K]V, len(keys))
	for _, k := range keys {
		if e, ok := c.lru.Peek(k); ok && c.live(e) {
			out[k] = e.value
		}
	}
	return out
}

// CleanUp drops expired entries.
func (c *LRUCache[K, V]) CleanUp() {
	if c.ttl == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep(time.Now())
}

// maybeSweep runs a sweep when the last one is a TTL old. Callers hold mu.
func (c *LRUCache[K, V]) maybeSweep(now time.Time) {
	if c.ttl == 0 || now.Before(c.nextSweep) {
		return
	}
	c.sweep(now)
}

// sweep removes entries written a TTL or more before now. Callers hold mu.
func (c *LRUCache[K, V]) sweep(now time.Time) {
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && now.Sub(e.written) >= c.ttl {
			c.lru.Remove(k)
		}
	}
	c.nextSweep = now.Add(c.ttl)
}

// Len returns the number of held entries, expired ones included until
// CleanUp drops them.
func (c *LRUCache[K, V]) Len() int {
	return c.lru.Len()
}
