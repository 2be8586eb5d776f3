// Package cache provides the entry-bounded LRU that holds produced facet
// classes.
//
// ShardedLRU distributes keys over up to 64 shards to reduce lock contention
// while keeping one global capacity and least-recently-used order.
// Entries leaving the cache for capacity reasons, or refused by the memory
// limit of a resource.Controller, are handed to an OnEvict callback so the
// caller can move them to a secondary tier. The callback runs after the shard
// lock is released.
package cache
