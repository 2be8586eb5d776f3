// Package conv provides integer conversions for document counts and
// serialized lengths.
//
// Lengths written to spill frames must fail loudly when they do not fit.
// Document counts are clamped instead, since a count can only overflow on
// corpora far beyond a shard's uint32 document ids.
package conv
