package logstore

import (
	"bytes"
	"sync"
)

// valueCache holds recently read values by file offset and evicts with CLOCK
// (second chance). An offset names one immutable log entry, so a cached value
// is valid until compaction rewrites the file and reset is called.
//
// A nil *valueCache is a disabled cache.
type valueCache struct {
	mu    sync.Mutex
	slots []cacheSlot
	index map[int64]int // offset -> slot
	hand  int
	used  int

	hits, misses uint64
}

type cacheSlot struct {
	off     int64
	value   []byte
	ref     bool
	present bool
}

func newValueCache(capacity int) *valueCache {
	if capacity <= 0 {
		return nil
	}
	return &valueCache{
		slots: make([]cacheSlot, capacity),
		index: make(map[int64]int, capacity),
	}
}

func (c *valueCache) get(off int64) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.index[off]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.slots[id].ref = true
	return bytes.Clone(c.slots[id].value), true
}

func (c *valueCache) put(off int64, value []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.index[off]; ok {
		c.slots[id].ref = true
		return
	}

	var id int
	if c.used < len(c.slots) {
		id = c.used
		c.used++
	} else {
		id = c.evict()
		delete(c.index, c.slots[id].off)
	}
	c.slots[id] = cacheSlot{off: off, value: bytes.Clone(value), ref: true, present: true}
	c.index[off] = id
}

// evict returns the slot of the victim. Every slot is present when called.
func (c *valueCache) evict() int {
	n := len(c.slots)
	// Two sweeps always find a victim: the first clears every ref bit.
	for i := 0; i < 2*n; i++ {
		idx := c.hand
		c.hand = (c.hand + 1) % n
		if !c.slots[idx].ref {
			return idx
		}
		c.slots[idx].ref = false
	}
	return c.hand
}

func (c *valueCache) reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.slots)
	clear(c.index)
	c.hand = 0
	c.used = 0
}

func (c *valueCache) stats() (hits, misses uint64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.used
}
