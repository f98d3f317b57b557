package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedGetSet(t *testing.T) {
	c := NewBounded[string, int](4)

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("a", 1)
	v, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestBoundedEviction(t *testing.T) {
	c := NewBounded[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, found := c.Get("a")
	assert.True(t, found)

	c.Set("c", 3)

	_, found = c.Get("b")
	assert.False(t, found, "least-recently-used entry should be evicted")

	_, found = c.Get("a")
	assert.True(t, found)
	_, found = c.Get("c")
	assert.True(t, found)
	assert.Equal(t, 2, c.Len())
}

func TestBoundedConcurrentAccess(t *testing.T) {
	c := NewBounded[string, int](128)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%10)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}
