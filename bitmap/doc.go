// Package bitmap provides the per-shard document sets used for facet counting.
//
// A Bitmap holds the document ids of a single shard. A Set holds one Bitmap
// per shard; shards are never combined bitwise, only by summing cardinalities.
package bitmap
