// Package index defines the read-only view of a sharded inverted index that
// facet production runs against.
//
// A Reader exposes shards. Each shard has its own document id space starting
// at zero, enumerates the distinct values of a field in ascending order with
// their document frequency, and looks up postings as bitmaps.
package index
