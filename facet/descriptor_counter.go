package facet

import (
	"context"
	"fmt"
	"strings"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/descriptor"
	"github.com/informationgrid/ingrid-search-utils/internal/conv"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
)

const providerFacetPrefix = "provider_"

// DescriptorCounter extends ConfigurableCounter with partner and provider
// classes taken from a descriptor source:
//
//   - facet partner: partner:<p> for every partner p
//   - facet provider: provider:<q> for every provider q
//   - facet provider_<p>, p a known partner: provider_<p>:<q> for every provider q
//
// If the facet was requested with classes, only the requested ones are
// added. Every class counts the whole result.
type DescriptorCounter struct {
	*ConfigurableCounter
	source descriptor.Source
}

var _ Counter = (*DescriptorCounter)(nil)

// NewDescriptorCounter creates a DescriptorCounter. It fails with
// ErrConfiguration when source is nil.
func NewDescriptorCounter(source descriptor.Source, facetClasses map[string][]string, classes []string) (*DescriptorCounter, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: descriptor counter needs a descriptor source", ErrConfiguration)
	}
	return &DescriptorCounter{
		ConfigurableCounter: NewConfigurableCounter(facetClasses, classes),
		source:              source,
	}, nil
}

// Count implements Counter.
func (c *DescriptorCounter) Count(ctx context.Context, acc model.Counts, q *query.Query, base bitmap.Set, defs []*model.FacetDefinition) error {
	if err := c.ConfigurableCounter.Count(ctx, acc, q, base, defs); err != nil {
		return err
	}

	partners, err := c.source.Partners(ctx)
	if err != nil {
		return fmt.Errorf("facet: descriptor partners: %w", err)
	}
	providers, err := c.source.Providers(ctx)
	if err != nil {
		return fmt.Errorf("facet: descriptor providers: %w", err)
	}

	total := conv.SaturateInt64(base.Cardinality())
	for _, def := range defs {
		switch {
		case def.Name == "partner":
			addDescribed(acc, def, partners, total)
		case def.Name == "provider":
			addDescribed(acc, def, providers, total)
		case strings.HasPrefix(def.Name, providerFacetPrefix):
			partner := strings.TrimPrefix(def.Name, providerFacetPrefix)
			for _, p := range partners {
				if p == partner {
					addDescribed(acc, def, providers, total)
					break
				}
			}
		}
	}
	return nil
}

func addDescribed(acc model.Counts, def *model.FacetDefinition, values []string, total int64) {
	for _, v := range values {
		name := model.ClassKey(def.Name, v)
		if def.HasClasses() {
			if _, ok := def.Class(name); !ok {
				continue
			}
		}
		acc.Put(name, total)
	}
}
