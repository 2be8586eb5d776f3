package query

import (
	"fmt"

	"github.com/informationgrid/ingrid-search-utils/codec"
)

// ClassSpec is one requested class of a facet.
type ClassSpec struct {
	ID    string `json:"id"`
	Query string `json:"query,omitempty"`
}

// FacetSpec is one requested facet. Field defaults to ID.
type FacetSpec struct {
	ID      string      `json:"id"`
	Field   string      `json:"field,omitempty"`
	Query   string      `json:"query,omitempty"`
	Classes []ClassSpec `json:"classes,omitempty"`
}

// Request is the search payload: the query text and the requested facets.
type Request struct {
	Query  string      `json:"query"`
	Facets []FacetSpec `json:"facets,omitempty"`
}

// ParseRequest decodes a request with c and parses its query. A nil codec
// selects codec.Default.
func ParseRequest(data []byte, c codec.Codec) (*Query, error) {
	if c == nil {
		c = codec.Default
	}
	var req Request
	if err := c.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("query: decode request: %w", err)
	}
	q, err := Parse(req.Query)
	if err != nil {
		return nil, err
	}
	q.Facets = req.Facets
	return q, nil
}

// WithFacets parses text and attaches facet specs. A nil specs list still
// marks the query as wanting facets.
func WithFacets(text string, specs ...FacetSpec) (*Query, error) {
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if specs == nil {
		specs = []FacetSpec{}
	}
	q.Facets = specs
	return q, nil
}
