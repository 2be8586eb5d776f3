// Package facet computes facet class counts for search results.
//
// A facet class is a named per-shard bitmap of the documents belonging to a
// facet value such as partner:bund. Classes are produced once from the index
// by a Producer, kept by a Registry, and intersected with the bitmaps of every
// search result by an IndexCounter. Counters that do not need the index
// (ConfigurableCounter, DescriptorCounter) attribute the whole result to
// configured classes. A Manager chains counters in priority order; earlier
// counters win for a class both can supply.
//
// Typical wiring:
//
//	compiler := query.NewCompiler()
//	producer := facet.NewProducer(idx, compiler)
//	registry := facet.NewRegistry(producer)
//	manager, err := facet.NewManager(
//	    facet.NewIndexResults(idx, compiler, 0),
//	    []facet.Counter{facet.NewIndexCounter(registry)},
//	)
//	...
//	manager.AddFacets(ctx, hits, q)
package facet
