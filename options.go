package searchutils

import (
	"time"

	"github.com/informationgrid/ingrid-search-utils/blobstore"
	"github.com/informationgrid/ingrid-search-utils/codec"
	"github.com/informationgrid/ingrid-search-utils/descriptor"
	"github.com/informationgrid/ingrid-search-utils/facet"
	"github.com/informationgrid/ingrid-search-utils/index"
	"github.com/informationgrid/ingrid-search-utils/query"
	"github.com/informationgrid/ingrid-search-utils/spill"
)

// ResourceLimits bounds the resources used for facet production.
type ResourceLimits struct {
	// MemoryLimitBytes caps the bitmap memory of cached classes. Zero only tracks.
	MemoryLimitBytes int64
	// MaxConcurrentDiscoveries bounds the term scans running at once. Zero means one.
	MaxConcurrentDiscoveries int64
	// SpillBytesPerSec limits the spill tier throughput. Zero is unlimited.
	SpillBytesPerSec int64
}

type options struct {
	reader      index.Reader
	compiler    *query.Compiler
	parallelism int
	filterCache int

	source       descriptor.Source
	facetClasses map[string][]string
	classes      []string
	counters     []facet.Counter

	spillBlobs    blobstore.BlobStore
	spillOptions  []func(*spill.Options)
	noSpill       bool
	cacheCapacity int

	maxClasses       int
	discoveryTimeout time.Duration
	limits           *ResourceLimits
	strictShards     bool

	warmup        *query.Query
	substitutions facet.ClassSubstitutions

	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures New.
type Option func(*options)

// WithIndex counts facets on r. Results are computed by running the query on
// r and classes are built from it. Without an index only configured and
// descriptor classes are counted, against a result of Hits.Total documents.
func WithIndex(r index.Reader) Option {
	return func(o *options) {
		o.reader = r
	}
}

// WithCompiler sets the compiler used for queries and class fragments.
// Defaults to query.NewCompiler with the parallelism of WithShardParallelism.
func WithCompiler(c *query.Compiler) Option {
	return func(o *options) {
		o.compiler = c
	}
}

// WithShardParallelism bounds the shards evaluated concurrently by the
// default compiler.
func WithShardParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithFilterCacheSize bounds the result filters kept per query text.
func WithFilterCacheSize(n int) Option {
	return func(o *options) {
		o.filterCache = n
	}
}

// WithDescriptor adds partner and provider classes from src. The whole
// result is attributed to each of them.
func WithDescriptor(src descriptor.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithConfiguredFacets attributes the whole result to fixed classes of
// facets requested without classes, e.g.
//
//	searchutils.WithConfiguredFacets(map[string][]string{
//	    "location": {"location:ffm", "location:b"},
//	})
func WithConfiguredFacets(facetClasses map[string][]string) Option {
	return func(o *options) {
		o.facetClasses = facetClasses
	}
}

// WithConfiguredClasses attributes the whole result to the listed classes
// when they are requested explicitly.
func WithConfiguredClasses(classes ...string) Option {
	return func(o *options) {
		o.classes = append(o.classes, classes...)
	}
}

// WithCounters adds custom counters. They run first and take precedence
// over every built-in counter.
func WithCounters(counters ...facet.Counter) Option {
	return func(o *options) {
		o.counters = append(o.counters, counters...)
	}
}

// WithSpillStore keeps classes evicted from the in-memory cache in blobs
// instead of the default in-process memory store.
//
// Example with an S3 bucket:
//
//	store, _ := s3.New(ctx, "facets", "spill/")
//	f, _ := searchutils.New(
//	    searchutils.WithIndex(idx),
//	    searchutils.WithSpillStore(store, func(o *spill.Options) {
//	        o.Compression = spill.CompressionZSTD
//	    }),
//	)
func WithSpillStore(blobs blobstore.BlobStore, optFns ...func(*spill.Options)) Option {
	return func(o *options) {
		o.spillBlobs = blobs
		o.spillOptions = optFns
		o.noSpill = false
	}
}

// WithoutSpill drops classes evicted from the in-memory cache; they are
// produced again when next requested.
func WithoutSpill() Option {
	return func(o *options) {
		o.spillBlobs = nil
		o.noSpill = true
	}
}

// WithCacheCapacity sets the number of classes kept in memory.
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		o.cacheCapacity = n
	}
}

// WithMaxClasses sets the number of classes discovered per facet.
func WithMaxClasses(k int) Option {
	return func(o *options) {
		o.maxClasses = k
	}
}

// WithDiscoveryTimeout bounds a single class discovery.
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(o *options) {
		o.discoveryTimeout = d
	}
}

// WithResourceLimits bounds memory, discovery concurrency and spill IO.
func WithResourceLimits(limits ResourceLimits) Option {
	return func(o *options) {
		o.limits = &limits
	}
}

// WithStrictShards reports ErrShardMismatch for classes whose shard count
// differs from the result instead of counting the common shards.
func WithStrictShards() Option {
	return func(o *options) {
		o.strictShards = true
	}
}

// WithWarmupQuery counts q once on Initialize to fill the caches.
func WithWarmupQuery(q *query.Query) Option {
	return func(o *options) {
		o.warmup = q
	}
}

// WithClassSubstitutions replaces class queries before counting. The outer
// key is the class name, the inner maps the requested query to the one used.
func WithClassSubstitutions(subs facet.ClassSubstitutions) Option {
	return func(o *options) {
		o.substitutions = subs
	}
}

// WithCodec configures the codec for request payloads and spill headers.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &searchutils.BasicMetricsCollector{}
//	f, _ := searchutils.New(searchutils.WithIndex(idx), searchutils.WithMetricsCollector(metrics))
//	// ... serve requests ...
//	stats := metrics.GetStats()
//	fmt.Printf("Requests: %d, cache hits: %d\n", stats.CountRequests, stats.CacheHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
