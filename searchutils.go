package searchutils

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/blobstore"
	"github.com/informationgrid/ingrid-search-utils/codec"
	"github.com/informationgrid/ingrid-search-utils/facet"
	"github.com/informationgrid/ingrid-search-utils/internal/resource"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
	"github.com/informationgrid/ingrid-search-utils/spill"
)

// Facets attaches facet counts to search results. It is safe for concurrent
// use; Initialize must be called before serving and whenever the index
// changes.
type Facets struct {
	manager   *facet.Manager
	registry  *facet.Registry
	spill     *spill.Store
	resources *resource.Controller
	codec     codec.Codec
	logger    *Logger
	closed    atomic.Bool
}

// Stats is a snapshot of a Facets instance.
type Stats struct {
	State facet.State
	// Registry is zero without an index.
	Registry facet.RegistryStats
	// MemoryUsage is the bitmap memory of cached classes, if tracked.
	MemoryUsage int64
}

// New wires the counter chain described by optFns.
//
// Counters run in this order, earlier ones taking precedence: custom
// counters, the descriptor or configured counter, the index counter. New
// fails with ErrConfiguration when no counter results from the options.
//
// Classes evicted from the in-memory cache are spilled LZ4 compressed to an
// in-process blobstore.MemoryStore unless WithSpillStore or WithoutSpill is
// given.
func New(optFns ...Option) (*Facets, error) {
	o := applyOptions(optFns)

	f := &Facets{codec: o.codec, logger: o.logger}
	metrics := loggingMetrics{next: o.metricsCollector, logger: o.logger}

	if o.limits != nil {
		f.resources = resource.NewController(resource.Config{
			MemoryLimitBytes:         o.limits.MemoryLimitBytes,
			MaxConcurrentDiscoveries: o.limits.MaxConcurrentDiscoveries,
			SpillBytesPerSec:         o.limits.SpillBytesPerSec,
		})
	}

	counters := append([]facet.Counter(nil), o.counters...)

	switch {
	case o.source != nil:
		dc, err := facet.NewDescriptorCounter(o.source, o.facetClasses, o.classes)
		if err != nil {
			return nil, fmt.Errorf("searchutils: %w", err)
		}
		counters = append(counters, dc)
	case o.facetClasses != nil || len(o.classes) > 0:
		counters = append(counters, facet.NewConfigurableCounter(o.facetClasses, o.classes))
	}

	var results facet.ResultSource = facet.HitCountResults{}
	if o.reader != nil {
		compiler := o.compiler
		if compiler == nil {
			compiler = query.NewCompiler(func(qo *query.Options) {
				if o.parallelism > 0 {
					qo.Parallelism = o.parallelism
				}
			})
		}

		if o.spillBlobs == nil && !o.noSpill {
			o.spillBlobs = blobstore.NewMemoryStore()
		}
		if o.spillBlobs != nil {
			spillFns := append([]func(*spill.Options){func(so *spill.Options) {
				so.Codec = o.codec
				so.Resources = f.resources
				so.Logger = o.logger.Logger
			}}, o.spillOptions...)
			f.spill = spill.New(o.spillBlobs, spillFns...)
		}

		producer := facet.NewProducer(o.reader, compiler, func(po *facet.ProducerOptions) {
			po.MaxClasses = o.maxClasses
			po.DiscoveryTimeout = o.discoveryTimeout
			po.Resources = f.resources
			po.Logger = o.logger.Logger
			po.Metrics = metrics
		})
		f.registry = facet.NewRegistry(producer, func(ro *facet.RegistryOptions) {
			ro.Capacity = o.cacheCapacity
			ro.Spill = f.spill
			ro.Resources = f.resources
			ro.Logger = o.logger.Logger
			ro.Metrics = metrics
		})
		counters = append(counters, facet.NewIndexCounter(f.registry, func(co *facet.IndexCounterOptions) {
			co.Strict = o.strictShards
			co.Logger = o.logger.Logger
		}))
		results = facet.NewIndexResults(o.reader, compiler, o.filterCache)
	}

	var processors []facet.DefinitionProcessor
	if len(o.substitutions) > 0 {
		processors = append(processors, facet.NewConfigurableClassProcessor(o.substitutions))
	}

	m, err := facet.NewManager(results, counters, func(mo *facet.ManagerOptions) {
		mo.Processors = processors
		mo.WarmupQuery = o.warmup
		mo.Logger = o.logger.Logger
		mo.Metrics = metrics
	})
	if err != nil {
		return nil, fmt.Errorf("searchutils: %w", err)
	}
	f.manager = m
	return f, nil
}

// Initialize resets every cache and runs the warm-up query.
func (f *Facets) Initialize(ctx context.Context) error {
	if f.closed.Load() {
		return ErrClosed
	}
	err := f.manager.Initialize(ctx)
	var gen uint64
	if f.registry != nil {
		gen = f.registry.Stats().Generation
	}
	f.logger.LogCacheCleared(ctx, gen, err)
	return err
}

// ParseRequest decodes a search request with the configured codec.
func (f *Facets) ParseRequest(data []byte) (*query.Query, error) {
	return query.ParseRequest(data, f.codec)
}

// AddFacets attaches the facet counts requested by q to hits. Failures are
// reported in hits.FacetErrors and never fail the search.
func (f *Facets) AddFacets(ctx context.Context, hits *model.Hits, q *query.Query) {
	if !q.WantsFacets() {
		return
	}
	if f.closed.Load() {
		hits.FacetErrors = append(hits.FacetErrors, ErrClosed)
		return
	}
	start := time.Now()
	failed := len(hits.FacetErrors)
	f.manager.AddFacets(ctx, hits, q)
	f.logger.LogFacetCounts(ctx, q.Raw, len(hits.Facets), len(hits.FacetErrors)-failed, time.Since(start))
}

// Counts runs the counter chain for q against a precomputed result.
func (f *Facets) Counts(ctx context.Context, q *query.Query, base bitmap.Set) (model.Counts, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	return f.manager.Counts(ctx, q, base)
}

// Registry returns the class registry, or nil without an index.
func (f *Facets) Registry() *facet.Registry { return f.registry }

// Stats returns a snapshot of the instance.
func (f *Facets) Stats() Stats {
	s := Stats{
		State:       f.manager.State(),
		MemoryUsage: f.resources.MemoryUsage(),
	}
	if f.registry != nil {
		s.Registry = f.registry.Stats()
	}
	return s
}

// Close removes every spilled class. The instance cannot be used afterwards.
func (f *Facets) Close(ctx context.Context) error {
	if f == nil || f.closed.Swap(true) {
		return nil
	}
	if f.spill == nil {
		return nil
	}
	n, err := f.spill.Purge(ctx)
	if err != nil {
		return fmt.Errorf("searchutils: purge spill: %w", err)
	}
	f.logger.DebugContext(ctx, "spilled classes removed", "count", n)
	return nil
}
