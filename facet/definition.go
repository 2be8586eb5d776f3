package facet

import (
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
)

// FacetDefinitions converts the facet specs of q into fresh definitions.
// Class names are prefixed with the facet id ("datatype" + "iso" becomes
// "datatype:iso"). It returns nil when q requests no facets.
func FacetDefinitions(q *query.Query) []*model.FacetDefinition {
	if !q.WantsFacets() {
		return nil
	}
	defs := make([]*model.FacetDefinition, 0, len(q.Facets))
	for _, spec := range q.Facets {
		def := model.NewFacetDefinition(spec.ID, spec.Field)
		def.QueryFragment = spec.Query
		for _, cs := range spec.Classes {
			def.AddClass(model.NewFacetClassDefinition(model.ClassKey(spec.ID, cs.ID), cs.Query))
		}
		defs = append(defs, def)
	}
	return defs
}
