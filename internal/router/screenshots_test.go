package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScreenshotCachePutGetRoundTrip(t *testing.T) {
	c := NewScreenshotCache(1 << 20)
	id, err := c.Put([]byte("png-bytes"), "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, mime, ok := c.Get(id)
	require.True(t, ok)
	require.Equal(t, "image/png", mime)
	require.Equal(t, []byte("png-bytes"), data)
}

func TestScreenshotCacheMissReturnsFalse(t *testing.T) {
	c := NewScreenshotCache(1 << 20)
	_, _, ok := c.Get("nonexistent")
	require.False(t, ok)
}

func TestScreenshotCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewScreenshotCache(30)
	first, err := c.Put(make([]byte, 10), "image/png")
	require.NoError(t, err)
	second, err := c.Put(make([]byte, 10), "image/png")
	require.NoError(t, err)

	// Touch first so it's most-recently-used, then push the cache over
	// capacity — second should be evicted instead of first.
	_, _, _ = c.Get(first)
	_, err = c.Put(make([]byte, 15), "image/png")
	require.NoError(t, err)

	_, _, ok := c.Get(second)
	require.False(t, ok, "least-recently-used entry should have been evicted")
	_, _, ok = c.Get(first)
	require.True(t, ok)
}

func TestScreenshotCacheNeverEvictsBelowOneEntry(t *testing.T) {
	c := NewScreenshotCache(5)
	id, err := c.Put(make([]byte, 1000), "image/png")
	require.NoError(t, err)

	_, _, ok := c.Get(id)
	require.True(t, ok, "a single oversized entry is kept, not evicted into emptiness")
}

func TestScreenshotCacheIDsAreUnique(t *testing.T) {
	c := NewScreenshotCache(1 << 20)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := c.Put([]byte("x"), "image/png")
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}
}
