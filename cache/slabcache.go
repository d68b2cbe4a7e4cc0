package cache

import (
	"sync"

	"github.com/skipor/slabcached/log"
	"github.com/skipor/slabcached/slab"
	"github.com/skipor/slabcached/stat"
)

// SlabCache is a cache for values of one slot size class: a slab plus a key
// to slot table paired with an LRU list.
//
// mu is the map lock: it guards table and lru together, so they are always
// mutated atomically. Slot bytes are guarded by the slot's own mutex and
// accessed with mu released.
type SlabCache struct {
	mu    sync.Mutex
	slab  *slab.Slab
	table map[string]*entry
	lru   *lruList
	log   log.Logger
	stats stat.CacheStats
}

func NewSlabCache(slotSize int, pool *slab.PagePool, l log.Logger, stats stat.CacheStats) *SlabCache {
	return &SlabCache{
		slab:  slab.NewSlab(slotSize, pool),
		table: make(map[string]*entry),
		lru:   newLRUList(),
		log:   l,
		stats: stats,
	}
}

func (c *SlabCache) SlotSize() int { return c.slab.SlotSize() }

// Get looks key up, promotes it, and deserializes the slot outside the map
// lock. A reader either sees the previous value in full or waits on the slot
// mutex for the writer to finish; there are no torn reads.
func (c *SlabCache) Get(key []byte) (Value, bool) {
	c.mu.Lock()
	e, ok := c.table[string(key)] // No allocation.
	if !ok {
		c.mu.Unlock()
		return Value{}, false
	}
	e.slot.Lock()
	c.lru.moveToBack(e)
	c.checkInvariants()
	c.mu.Unlock()

	v, err := readValue(e.slot.Bytes())
	e.slot.Unlock()
	if err != nil {
		// Cannot happen while invariant "slot holds the last successful
		// set" is maintained.
		c.log.Error("slot deserialize failed: ", err)
		return Value{}, false
	}
	return v, true
}

// Set stores v under key. It returns false iff the serialized value does not
// fit a slot, or the slab has no memory and nothing to evict.
func (c *SlabCache) Set(key []byte, v Value) bool {
	if v.SerializedSize() > c.slab.SlotSize() {
		return false
	}

	c.mu.Lock()
	var s *slab.Slot
	if old, ok := c.table[string(key)]; ok {
		// Reuse the slot of the overwritten value.
		delete(c.table, string(key))
		c.lru.remove(old)
		s = old.slot
	} else {
		s, ok = c.slab.GetSlot()
		if !ok {
			// All memory exhausted. Evict the LRU head and reuse its slot.
			victim := c.lru.popFront()
			if victim == nil {
				// Other slabs took all pages before this slab ever asked.
				c.mu.Unlock()
				c.log.Debugf("set %q refused: slab %v has no memory", key, c.slab.SlotSize())
				return false
			}
			delete(c.table, victim.key)
			s = victim.slot
			c.stats.Evictions.Inc(1)
		}
	}
	// A get processing this slot in parallel may still hold its mutex.
	// Once acquired, the slot is exclusively ours: it is no longer
	// reachable from the table.
	s.Lock()
	c.mu.Unlock()

	err := writeValue(s.Bytes(), v)
	if err != nil {
		// Unreachable: size was checked against the slot size above.
		s.Unlock()
		c.slab.PutSlot(s)
		c.log.Error("slot serialize failed: ", err)
		return false
	}

	c.mu.Lock()
	c.install(&entry{key: string(key), slot: s})
	c.checkInvariants()
	c.mu.Unlock()
	s.Unlock()
	return true
}

// install adds e to table and LRU tail under the map lock. When a concurrent
// set on the same key installed first, its entry is unlinked and its slot
// returned to the freelist, keeping table and LRU in one to one
// correspondence.
func (c *SlabCache) install(e *entry) {
	if prev, ok := c.table[e.key]; ok {
		c.lru.remove(prev)
		c.slab.PutSlot(prev.slot)
	}
	c.table[e.key] = e
	c.lru.pushBack(e)
}

// Len returns the number of cached keys.
func (c *SlabCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.table)
}
