package facet

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/internal/conv"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
)

// Counter adds facet class counts to an accumulator.
//
// Count must never overwrite a key already present in acc, so counters can
// be chained in priority order. Per-class failures are returned joined; the
// counts that could be computed are still added.
type Counter interface {
	Initialize(ctx context.Context) error
	Count(ctx context.Context, acc model.Counts, q *query.Query, base bitmap.Set, defs []*model.FacetDefinition) error
}

// IndexCounterOptions configures an IndexCounter.
type IndexCounterOptions struct {
	// Strict turns a shard count mismatch between the result and a class
	// into ErrShardMismatch instead of counting the common shards.
	Strict bool
	Logger *slog.Logger
}

// IndexCounter counts classes by intersecting them with the result.
type IndexCounter struct {
	registry *Registry
	opts     IndexCounterOptions
}

var _ Counter = (*IndexCounter)(nil)

// NewIndexCounter creates a counter backed by r.
func NewIndexCounter(r *Registry, optFns ...func(o *IndexCounterOptions)) *IndexCounter {
	var opts IndexCounterOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &IndexCounter{registry: r, opts: opts}
}

// Initialize clears the registry.
func (c *IndexCounter) Initialize(ctx context.Context) error {
	return c.registry.Clear(ctx)
}

// Count implements Counter.
func (c *IndexCounter) Count(ctx context.Context, acc model.Counts, _ *query.Query, base bitmap.Set, defs []*model.FacetDefinition) error {
	var errs []error
	for _, def := range defs {
		classes, err := c.registry.FacetClasses(ctx, def)
		if err != nil {
			errs = append(errs, err)
		}
		for _, fc := range classes {
			if acc.Has(fc.Name()) {
				continue
			}
			n, mismatch := bitmap.IntersectCardinality(base, fc.Bitsets())
			if mismatch {
				if c.opts.Strict {
					errs = append(errs, &ClassError{Facet: def.Name, Class: fc.Name(), Err: ErrShardMismatch})
					continue
				}
				c.opts.Logger.WarnContext(ctx, "different shard counts, counting common shards only",
					"class", fc.Name(),
					"result_shards", len(base),
					"class_shards", len(fc.Bitsets()),
				)
			}
			acc.Put(fc.Name(), conv.SaturateInt64(n))
		}
	}
	return errors.Join(errs...)
}

// ConfigurableCounter attributes the whole result to configured classes.
//
// A facet requested without classes gets every class listed for it in
// FacetClasses. A facet requested with classes gets those of its classes
// that appear in Classes.
type ConfigurableCounter struct {
	FacetClasses map[string][]string
	Classes      []string
}

var _ Counter = (*ConfigurableCounter)(nil)

// NewConfigurableCounter creates a ConfigurableCounter. Either argument may be nil.
func NewConfigurableCounter(facetClasses map[string][]string, classes []string) *ConfigurableCounter {
	return &ConfigurableCounter{FacetClasses: facetClasses, Classes: classes}
}

// Initialize implements Counter. There is nothing to reset.
func (c *ConfigurableCounter) Initialize(context.Context) error { return nil }

// Count implements Counter.
func (c *ConfigurableCounter) Count(_ context.Context, acc model.Counts, _ *query.Query, base bitmap.Set, defs []*model.FacetDefinition) error {
	total := conv.SaturateInt64(base.Cardinality())
	for _, def := range defs {
		if !def.HasClasses() {
			for _, name := range c.FacetClasses[def.Name] {
				acc.Put(name, total)
			}
			continue
		}
		for _, cd := range def.Classes {
			if slices.Contains(c.Classes, cd.Name) {
				acc.Put(cd.Name, total)
			}
		}
	}
	return nil
}
