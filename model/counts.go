package model

import (
	"maps"
	"slices"
)

// Counts maps "<facet>:<class>" keys to document counts.
type Counts map[string]int64

// Has reports whether key already carries a count.
func (c Counts) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Put stores n under key unless key is already present. It reports whether
// the value was stored. Earlier counters in a chain take precedence.
func (c Counts) Put(key string, n int64) bool {
	if _, ok := c[key]; ok {
		return false
	}
	c[key] = n
	return true
}

// Keys returns the keys in sorted order.
func (c Counts) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Hits is the search response facet counts are attached to.
type Hits struct {
	Total int64 `json:"total"`
	// Facets is nil unless the query requested facets.
	Facets Counts `json:"FACETS,omitempty"`
	// FacetErrors collects per-definition failures. They never fail the response.
	FacetErrors []error `json:"-"`
}

// SetFacets attaches counts.
func (h *Hits) SetFacets(c Counts) {
	h.Facets = c
}
