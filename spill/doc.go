// Package spill is the overflow tier of the facet class registry.
//
// Classes evicted from the in-memory cache are serialized into a single blob
// per class on a blobstore.BlobStore and restored on the next miss. Blobs are
// grouped by registry generation, so clearing the registry invalidates every
// spilled class at once.
package spill
