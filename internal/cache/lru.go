package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/informationgrid/ingrid-search-utils/internal/resource"
)

// EvictFunc receives entries that leave the cache for capacity reasons.
type EvictFunc[V any] func(key string, value V)

// SizeFunc reports the memory held by a value.
type SizeFunc[V any] func(value V) int64

// Options configures an LRU.
type Options[V any] struct {
	// OnEvict is called for entries evicted or refused for capacity reasons.
	// It is not called by Remove or Clear.
	OnEvict EvictFunc[V]
	// Size is required to account values against Controller.
	Size SizeFunc[V]
	// Controller limits the memory of cached values. Optional.
	Controller *resource.Controller
}

// LRU implements an entry-bounded least-recently-used cache.
type LRU[V any] struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List
	opts      Options[V]

	// clock stamps every access; shards of a ShardedLRU share it so their
	// least recently used entries can be compared.
	clock *atomic.Uint64
	// count is the number of entries, shared by the shards of a ShardedLRU.
	count *atomic.Int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry[V any] struct {
	key   string
	value V
	size  int64
	tick  uint64
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[V any](capacity int, opts Options[V]) *LRU[V] {
	return newLRU(capacity, opts, new(atomic.Uint64), new(atomic.Int64))
}

func newLRU[V any](capacity int, opts Options[V], clock *atomic.Uint64, count *atomic.Int64) *LRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[V]{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		opts:      opts,
		clock:     clock,
		count:     count,
	}
}

// Get returns a cached value.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry[V])
		e.tick = c.clock.Add(1)
		return e.value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set caches value under key, replacing an existing entry. It reports
// whether the value was admitted; a refused value is handed to OnEvict.
func (c *LRU[V]) Set(key string, value V) bool {
	evicted, admitted := c.set(key, value)
	c.notify(evicted)
	return admitted
}

func (c *LRU[V]) set(key string, value V) ([]*entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var size int64
	if c.opts.Size != nil && c.opts.Controller != nil {
		size = c.opts.Size(value)
	}

	if ent, ok := c.items[key]; ok {
		old := ent.Value.(*entry[V])
		if size > old.size {
			if c.opts.Controller.AcquireMemory(size-old.size) != nil {
				// keep the old value
				return []*entry[V]{{key: key, value: value}}, false
			}
		} else {
			c.opts.Controller.ReleaseMemory(old.size - size)
		}
		old.value = value
		old.size = size
		old.tick = c.clock.Add(1)
		c.evictList.MoveToFront(ent)
		return nil, true
	}

	var evicted []*entry[V]
	for c.evictList.Len() >= c.capacity {
		evicted = append(evicted, c.removeElement(c.evictList.Back()))
	}

	if err := c.opts.Controller.AcquireMemory(size); err != nil {
		// Evict down to make room in the global budget before giving up.
		for c.evictList.Len() > 0 && err != nil {
			evicted = append(evicted, c.removeElement(c.evictList.Back()))
			err = c.opts.Controller.AcquireMemory(size)
		}
		if err != nil {
			return append(evicted, &entry[V]{key: key, value: value}), false
		}
	}

	c.items[key] = c.evictList.PushFront(&entry[V]{key: key, value: value, size: size, tick: c.clock.Add(1)})
	c.count.Add(1)
	return evicted, true
}

func (c *LRU[V]) notify(evicted []*entry[V]) {
	for _, e := range evicted {
		c.evictions.Add(1)
		if c.opts.OnEvict != nil {
			c.opts.OnEvict(e.key, e.value)
		}
	}
}

// Remove deletes key without calling OnEvict.
func (c *LRU[V]) Remove(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		return c.removeElement(ent).value, true
	}
	var zero V
	return zero, false
}

// Clear drops every entry without calling OnEvict.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

func (c *LRU[V]) removeElement(e *list.Element) *entry[V] {
	c.evictList.Remove(e)
	kv := e.Value.(*entry[V])
	delete(c.items, kv.key)
	c.opts.Controller.ReleaseMemory(kv.size)
	c.count.Add(-1)
	return kv
}

// oldest returns the access tick of the least recently used entry.
func (c *LRU[V]) oldest() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	back := c.evictList.Back()
	if back == nil {
		return 0, false
	}
	return back.Value.(*entry[V]).tick, true
}

// evictOldest removes the least recently used entry. The caller notifies.
func (c *LRU[V]) evictOldest() (*entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	back := c.evictList.Back()
	if back == nil {
		return nil, false
	}
	return c.removeElement(back), true
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Capacity returns the maximum number of entries.
func (c *LRU[V]) Capacity() int { return c.capacity }

// Stats returns hit, miss and eviction counts.
func (c *LRU[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.Len(),
	}
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Len       int
}
