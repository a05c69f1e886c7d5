package cache

import (
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcgvault/tcgvault/pkg/observability"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New()

	c.Set("key", "value", time.Minute)

	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := New()

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiryEvictsLazily(t *testing.T) {
	c := New()

	start := time.Now()
	c.now = func() time.Time { return start }
	c.Set("key", "value", 100*time.Millisecond)

	// Still fresh at the TTL boundary.
	c.now = func() time.Time { return start.Add(100 * time.Millisecond) }
	_, ok := c.Get("key")
	assert.True(t, ok)

	// Stale past the boundary: miss, and the entry is removed.
	c.now = func() time.Time { return start.Add(150 * time.Millisecond) }
	_, ok = c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Overwrite(t *testing.T) {
	c := New()

	c.Set("key", "old", time.Minute)
	c.Set("key", "new", time.Minute)

	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestCache_ClearBySubstring(t *testing.T) {
	c := New()

	c.Set("sets:list", 1, time.Minute)
	c.Set("cards:sv1", 2, time.Minute)
	c.Set("cards:sv2", 3, time.Minute)

	c.Clear("cards:")

	_, ok := c.Get("sets:list")
	assert.True(t, ok)
	_, ok = c.Get("cards:sv1")
	assert.False(t, ok)
	_, ok = c.Get("cards:sv2")
	assert.False(t, ok)
}

func TestCache_LookupsAreCounted(t *testing.T) {
	c := New()

	hits := promtestutil.ToFloat64(observability.CacheRequestsTotal.WithLabelValues("hit"))
	misses := promtestutil.ToFloat64(observability.CacheRequestsTotal.WithLabelValues("miss"))

	c.Set("key", "value", time.Minute)

	_, ok := c.Get("key")
	require.True(t, ok)

	_, ok = c.Get("missing")
	require.False(t, ok)

	assert.Equal(t, hits+1, promtestutil.ToFloat64(observability.CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+1, promtestutil.ToFloat64(observability.CacheRequestsTotal.WithLabelValues("miss")))
}

func TestCache_ClearAll(t *testing.T) {
	c := New()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Clear("")

	assert.Equal(t, 0, c.Len())
}
