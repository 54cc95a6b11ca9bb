/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/fieldstore/cache"
)

func implementations() map[string]func() cache.Cache[string, int] {
	return map[string]func() cache.Cache[string, int]{
		"map":     func() cache.Cache[string, int] { return cache.NewMap[string, int]() },
		"lru":     func() cache.Cache[string, int] { return cache.NewLRU[string, int](100, time.Hour) },
		"default": func() cache.Cache[string, int] { return cache.NewDefault[string, int]() },
	}
}

func TestCacheContract(t *testing.T) {
	for name, newCache := range implementations() {
		t.Run(name, func(t *testing.T) {
			c := newCache()

			_, ok := c.GetIfPresent("a")
			assert.False(t, ok)

			c.Put("a", 1)
			v, ok := c.GetIfPresent("a")
			require.True(t, ok)
			assert.Equal(t, 1, v)

			c.Put("a", 2)
			v, _ = c.GetIfPresent("a")
			assert.Equal(t, 2, v, "last write wins")

			c.PutAll(map[string]int{"b": 3, "c": 4})
			assert.Equal(t, 3, c.Size())
			assert.True(t, c.Contains("b"))

			snap := c.Snapshot()
			assert.Equal(t, map[string]int{"a": 2, "b": 3, "c": 4}, snap)

			c.Put("d", 5)
			assert.NotContains(t, snap, "d", "snapshot is a point-in-time copy")

			c.Invalidate("a")
			assert.False(t, c.Contains("a"))
			assert.Equal(t, 3, c.Size())

			c.CleanUp()
			c.InvalidateAll()
			assert.Equal(t, 0, c.Size())
			assert.Empty(t, c.Snapshot())
		})
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	for name, newCache := range implementations() {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						c.Put("k", i*j)
						c.GetIfPresent("k")
						c.Snapshot()
					}
				}(i)
			}
			wg.Wait()
			assert.True(t, c.Contains("k"))
		})
	}
}

func TestLRUBounds(t *testing.T) {
	c := cache.NewLRU[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	assert.Equal(t, 2, c.Size())
	assert.False(t, c.Contains("a"), "oldest entry is evicted")

	expiring := cache.NewLRU[string, int](0, 20*time.Millisecond)
	expiring.Put("a", 1)
	assert.Eventually(t, func() bool {
		_, ok := expiring.GetIfPresent("a")
		return !ok
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, expiring.Size())
}

func TestLRUStartsNoGoroutine(t *testing.T) {
	before := runtime.NumGoroutine()
	caches := make([]*cache.LRUCache[string, int], 0, 50)
	for i := 0; i < 50; i++ {
		c := cache.NewLRU[string, int](0, time.Minute)
		c.Put("a", i)
		caches = append(caches, c)
	}
	assert.Less(t, runtime.NumGoroutine()-before, 5)
	assert.Len(t, caches, 50)
}

func TestLRUCleanUpDropsExpired(t *testing.T) {
	c := cache.NewLRU[string, int](0, 20*time.Millisecond)
	c.PutAll(map[string]int{"a": 1, "b": 2})
	require.Equal(t, 2, c.Len())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, c.Size())
	assert.Equal(t, 2, c.Len(), "expired entries wait for a sweep")

	c.CleanUp()
	assert.Equal(t, 0, c.Len())

	c.Put("c", 3)
	assert.True(t, c.Contains("c"))
}

func TestLRUWritesSweepExpired(t *testing.T) {
	c := cache.NewLRU[string, int](0, 20*time.Millisecond)
	c.Put("a", 1)
	time.Sleep(40 * time.Millisecond)

	c.Put("b", 2)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, map[string]int{"b": 2}, c.Snapshot())
}
