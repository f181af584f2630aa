package netcache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_BasicGetPut(t *testing.T) {
	c := NewLRU[string](3, 0, nil)

	c.Put("a", "A")
	c.Put("b", "B")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string](2, 0, nil)

	c.Put("a", "A")
	c.Put("b", "B")
	c.Put("c", "C") // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
}

func TestLRU_AccessPromotesEntry(t *testing.T) {
	c := NewLRU[string](2, 0, nil)

	c.Put("a", "A")
	c.Put("b", "B")
	c.Get("a")
	c.Put("c", "C")

	_, ok := c.Get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[string](2, 0, nil)

	c.Put("a", "A1")
	c.Put("a", "A2")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_TTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewLRU[int](10, time.Minute, clock)

	c.Put("a", 1)
	clock.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Zero(t, c.Len())
}

func TestLRU_PutRefreshesTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewLRU[int](10, time.Minute, clock)

	c.Put("a", 1)
	clock.Advance(50 * time.Second)
	c.Put("a", 2)
	clock.Advance(50 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLRU_NonPositiveSizeHoldsOne(t *testing.T) {
	c := NewLRU[int](0, 0, nil)
	c.Put("a", 1)
	c.Put("b", 2)
	assert.Equal(t, 1, c.Len())
}

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory(4, time.Hour, clockwork.NewFakeClock())
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("<osm/>")))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("<osm/>"), v)
	assert.Equal(t, "memory", m.Name())
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis("not a url", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}
