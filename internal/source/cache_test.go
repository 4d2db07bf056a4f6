package source

import (
	"testing"

	"poolpulse/pkg/models"

	"github.com/stretchr/testify/require"
)

// TestCacheSetGet verifies basic population and retrieval.
func TestCacheSetGet(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("missing")
	require.False(t, ok)

	records := []models.RawPool{{ChainHint: "ethereum"}}
	c.Set("key", records)

	got, ok := c.Get("key")
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, 1, c.Len())
}

// TestCacheEmptySliceIsCached verifies a cached empty result still counts as
// populated, so a failed upstream is not hammered within a session.
func TestCacheEmptySliceIsCached(t *testing.T) {
	c := NewCache()
	c.Set("empty", nil)

	got, ok := c.Get("empty")
	require.True(t, ok)
	require.Empty(t, got)
}

// TestCacheClear verifies clearing forces the next lookup to miss.
func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Set("a", []models.RawPool{{}})
	c.Set("b", []models.RawPool{{}})
	require.Equal(t, 2, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())

	_, ok := c.Get("a")
	require.False(t, ok)
}

// TestCacheLastWriteWins verifies concurrent population semantics.
func TestCacheLastWriteWins(t *testing.T) {
	c := NewCache()
	c.Set("key", []models.RawPool{{ChainHint: "first"}})
	c.Set("key", []models.RawPool{{ChainHint: "second"}})

	got, ok := c.Get("key")
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "second", got[0].ChainHint)
}
