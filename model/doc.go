// Package model defines the facet types shared by the counting pipeline.
//
// # Definitions
//
//   - FacetDefinition: one requested facet, its field and its optional classes
//   - FacetClassDefinition: one class of a facet and the query defining it
//
// # Produced data
//
//   - FacetClass: an immutable named per-shard bitmap
//   - TermFrequency: a discovery candidate (field, value, document frequency)
//   - Counts: the "<facet>:<class>" to count accumulator
//   - Hits: the search response the counts are attached to
package model
