// Package searchutils computes facet counts for search results.
//
// A facet is a named dimension of the documents in an index (partner,
// provider, datatype). Each facet has classes, and each class is the set of
// documents matching a query fragment. Searches ask for facets and receive,
// next to the hits, the number of result documents in every class.
//
// Classes are built once per index generation as one bitmap per index
// shard and cached, so counting a request is a set of bitmap
// intersections. Facets requested without classes get their classes
// discovered from the most frequent values of their field.
//
// # Quick Start
//
//	f, err := searchutils.New(
//	    searchutils.WithIndex(idx),
//	    searchutils.WithDescriptor(descriptor.Static(partners, providers)),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := f.Initialize(ctx); err != nil {
//	    return err
//	}
//
//	q, _ := f.ParseRequest([]byte(`{"query": "wasser", "facets": [{"id": "partner"}]}`))
//	hits := &model.Hits{Total: total}
//	f.AddFacets(ctx, hits, q)
//	// hits.Facets["partner:bund"] == 2
//
// # Caching and Overflow
//
// Produced classes live in a sharded LRU (WithCacheCapacity). Evicted
// classes are written to an in-process memory store, or with WithSpillStore
// to a blob store (local disk, MinIO or S3), and restored on the next miss
// instead of being rebuilt. WithoutSpill turns the overflow tier off.
// Initialize drops every cached and spilled class; call it whenever the
// index changes.
//
// # Counters
//
// Counts come from a chain of counters. A key counted by an earlier counter
// is never overwritten by a later one:
//
//   - custom counters from WithCounters
//   - the descriptor counter (WithDescriptor) or the configured counter
//     (WithConfiguredFacets, WithConfiguredClasses), attributing the whole
//     result to fixed classes
//   - the index counter (WithIndex), intersecting classes with the result
//
// # Observability
//
// Metrics are reported to a MetricsCollector (BasicMetricsCollector, or the
// Prometheus collector of package metric). Logging uses log/slog through
// Logger.
package searchutils
