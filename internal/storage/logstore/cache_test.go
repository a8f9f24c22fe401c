package logstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueCache_Disabled(t *testing.T) {
	c := newValueCache(0)
	require.Nil(t, c)

	c.put(1, []byte("a"))
	_, ok := c.get(1)
	require.False(t, ok)
	c.reset()
}

func TestValueCache_GetPut(t *testing.T) {
	c := newValueCache(2)

	_, ok := c.get(10)
	require.False(t, ok)

	c.put(10, []byte("ten"))
	v, ok := c.get(10)
	require.True(t, ok)
	require.Equal(t, []byte("ten"), v)

	// Returned values are copies.
	v[0] = 'X'
	v, _ = c.get(10)
	require.Equal(t, []byte("ten"), v)

	hits, misses, size := c.stats()
	require.Equal(t, uint64(2), hits)
	require.Equal(t, uint64(1), misses)
	require.Equal(t, 1, size)
}

func TestValueCache_SecondChance(t *testing.T) {
	c := newValueCache(3)
	for off := int64(0); off < 3; off++ {
		c.put(off, []byte{byte(off)})
	}

	// All refs set: the first sweep clears them, then slot 0 goes.
	c.put(3, []byte{3})
	_, ok := c.get(0)
	require.False(t, ok)

	// Touch 1 so it survives; 2 is the next victim.
	_, ok = c.get(1)
	require.True(t, ok)
	c.put(4, []byte{4})

	_, ok = c.get(2)
	require.False(t, ok)
	for _, off := range []int64{1, 3, 4} {
		_, ok := c.get(off)
		require.True(t, ok, "offset %d", off)
	}
}

func TestValueCache_Reset(t *testing.T) {
	c := newValueCache(2)
	c.put(1, []byte("a"))
	c.put(2, []byte("b"))
	c.reset()

	_, ok := c.get(1)
	require.False(t, ok)
	_, _, size := c.stats()
	require.Zero(t, size)

	c.put(3, []byte("c"))
	v, ok := c.get(3)
	require.True(t, ok)
	require.Equal(t, []byte("c"), v)
}
