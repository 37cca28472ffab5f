package jsonldex

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache sizes match the long-lived process profile this library targets: a
// small cache for whole-document hashes, a larger one for expansion results.
const (
	DefaultHashCacheEntries    = 100
	DefaultPatternCacheEntries = 500
)

// Caches holds the bounded shared caches a Processor consults. Both caches
// are pure memoization keyed on the exact canonical serialization of their
// input, so eviction, sharing across goroutines, or bypassing them entirely
// can never change a result. A nil *Caches disables caching.
type Caches struct {
	hashes   *lru.Cache[string, uint64]
	patterns *lru.Cache[string, any]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCaches builds caches with the default entry bounds.
func NewCaches() *Caches {
	return NewCachesSize(DefaultHashCacheEntries, DefaultPatternCacheEntries)
}

// NewCachesSize builds caches with explicit entry bounds. Bounds below one
// are raised to one.
func NewCachesSize(hashEntries, patternEntries int) *Caches {
	if hashEntries < 1 {
		hashEntries = 1
	}
	if patternEntries < 1 {
		patternEntries = 1
	}
	// lru.New only errors on a non-positive size
	hashes, _ := lru.New[string, uint64](hashEntries)
	patterns, _ := lru.New[string, any](patternEntries)
	return &Caches{hashes: hashes, patterns: patterns}
}

// valueHash returns the structural hash of v, consulting the hash cache.
func (c *Caches) valueHash(v any) uint64 {
	if c == nil {
		return ValueHash(v)
	}
	key := canonicalKey(v)
	if h, ok := c.hashes.Get(key); ok {
		c.hits.Add(1)
		return h
	}
	c.misses.Add(1)
	h := ValueHash(v)
	c.hashes.Add(key, h)
	return h
}

// expansion returns a cached expansion result for v, or computes one via fn.
// Stored and returned values are cloned so callers can mutate freely.
func (c *Caches) expansion(v any, fn func(any) any) any {
	if c == nil {
		return fn(v)
	}
	key := canonicalKey(v)
	if cached, ok := c.patterns.Get(key); ok {
		c.hits.Add(1)
		return cloneValue(cached)
	}
	c.misses.Add(1)
	out := fn(v)
	c.patterns.Add(key, cloneValue(out))
	return out
}

// Purge drops all cached entries. Hit and miss counters are preserved.
func (c *Caches) Purge() {
	if c == nil {
		return
	}
	c.hashes.Purge()
	c.patterns.Purge()
}
