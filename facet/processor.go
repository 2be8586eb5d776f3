package facet

import "github.com/informationgrid/ingrid-search-utils/model"

// DefinitionProcessor rewrites facet definitions before counting.
type DefinitionProcessor interface {
	Process(defs []*model.FacetDefinition)
}

// ClassSubstitutions maps class name to old query to new query.
type ClassSubstitutions map[string]map[string]string

// ConfigurableClassProcessor replaces the query of explicit classes.
// A class is rewritten only when both its name and its current query match
// an entry.
type ConfigurableClassProcessor struct {
	Substitutions ClassSubstitutions
}

var _ DefinitionProcessor = (*ConfigurableClassProcessor)(nil)

// NewConfigurableClassProcessor creates a processor for subs.
func NewConfigurableClassProcessor(subs ClassSubstitutions) *ConfigurableClassProcessor {
	return &ConfigurableClassProcessor{Substitutions: subs}
}

// Process implements DefinitionProcessor.
func (p *ConfigurableClassProcessor) Process(defs []*model.FacetDefinition) {
	for _, def := range defs {
		for _, cd := range def.Classes {
			if cd.Query == "" {
				continue
			}
			if replacement, ok := p.Substitutions[cd.Name][cd.Query]; ok {
				cd.Query = replacement
			}
		}
	}
}
