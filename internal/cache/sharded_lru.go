package cache

import (
	"hash/maphash"
	"sync"
	"sync/atomic"
)

const maxShards = 64

// ShardedLRU spreads entries over LRU shards to reduce lock contention.
//
// The capacity bounds the cache as a whole, not each shard: when an insert
// exceeds it, the least recently used entry across all shards is evicted.
// A skewed key distribution therefore never evicts while the cache has room.
type ShardedLRU[V any] struct {
	shards   []*LRU[V]
	seed     maphash.Seed
	capacity int

	clock atomic.Uint64
	count atomic.Int64
	// evictMu serializes global evictions.
	evictMu sync.Mutex
}

// NewShardedLRU creates a sharded cache holding at most capacity entries.
func NewShardedLRU[V any](capacity int, opts Options[V]) *ShardedLRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	n := min(maxShards, capacity)

	s := &ShardedLRU[V]{
		shards:   make([]*LRU[V], n),
		seed:     maphash.MakeSeed(),
		capacity: capacity,
	}
	for i := range n {
		s.shards[i] = newLRU(capacity, opts, &s.clock, &s.count)
	}
	return s
}

func (s *ShardedLRU[V]) shard(key string) *LRU[V] {
	if len(s.shards) == 1 {
		return s.shards[0]
	}
	return s.shards[maphash.String(s.seed, key)%uint64(len(s.shards))]
}

// Get returns a cached value.
func (s *ShardedLRU[V]) Get(key string) (V, bool) {
	return s.shard(key).Get(key)
}

// Set caches a value, evicting the least recently used entries of the
// whole cache while it is over capacity. See LRU.Set.
func (s *ShardedLRU[V]) Set(key string, value V) bool {
	admitted := s.shard(key).Set(key, value)
	s.shrink()
	return admitted
}

func (s *ShardedLRU[V]) shrink() {
	if s.count.Load() <= int64(s.capacity) {
		return
	}

	type victim struct {
		shard *LRU[V]
		e     *entry[V]
	}
	var victims []victim

	s.evictMu.Lock()
	for s.count.Load() > int64(s.capacity) {
		sh := s.oldestShard()
		if sh == nil {
			break
		}
		if e, ok := sh.evictOldest(); ok {
			victims = append(victims, victim{sh, e})
		}
	}
	s.evictMu.Unlock()

	for _, v := range victims {
		v.shard.notify([]*entry[V]{v.e})
	}
}

// oldestShard returns the shard holding the least recently used entry.
func (s *ShardedLRU[V]) oldestShard() *LRU[V] {
	var (
		best *LRU[V]
		tick uint64
	)
	for _, sh := range s.shards {
		t, ok := sh.oldest()
		if ok && (best == nil || t < tick) {
			best, tick = sh, t
		}
	}
	return best
}

// Remove deletes key without calling OnEvict.
func (s *ShardedLRU[V]) Remove(key string) (V, bool) {
	return s.shard(key).Remove(key)
}

// Clear drops all entries of all shards.
func (s *ShardedLRU[V]) Clear() {
	var wg sync.WaitGroup
	for _, sh := range s.shards {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sh.Clear()
		}()
	}
	wg.Wait()
}

// Len returns the number of entries across shards.
func (s *ShardedLRU[V]) Len() int {
	return int(s.count.Load())
}

// Capacity returns the total capacity.
func (s *ShardedLRU[V]) Capacity() int { return s.capacity }

// Stats returns aggregated statistics.
func (s *ShardedLRU[V]) Stats() Stats {
	var total Stats
	for _, sh := range s.shards {
		st := sh.Stats()
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.Evictions += st.Evictions
	}
	total.Len = s.Len()
	return total
}
