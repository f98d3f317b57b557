package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Bounded is a fixed-capacity, concurrent-safe in-memory key-value store
// with least-recently-used eviction. It backs the process-wide WHOIS
// memoization so repeated lookups for the same host stay cheap without
// the cache growing unbounded.
type Bounded[K comparable, V any] struct {
	lru *lru.Cache[K, V]
}

// NewBounded creates a store that holds at most capacity entries.
// A capacity below 1 is treated as 1.
func NewBounded[K comparable, V any](capacity int) *Bounded[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	// lru.New only errors on a non-positive capacity, which is guarded above.
	c, _ := lru.New[K, V](capacity)
	return &Bounded[K, V]{lru: c}
}

// Get retrieves a value and marks it as recently used.
// It returns the value and true if the key exists, otherwise the zero value and false.
func (c *Bounded[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set adds or updates a value, evicting the least-recently-used entry
// when the store is at capacity.
func (c *Bounded[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Len returns the number of entries currently held.
func (c *Bounded[K, V]) Len() int {
	return c.lru.Len()
}
