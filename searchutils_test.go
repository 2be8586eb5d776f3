package searchutils

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/blobstore"
	"github.com/informationgrid/ingrid-search-utils/descriptor"
	"github.com/informationgrid/ingrid-search-utils/facet"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
	"github.com/informationgrid/ingrid-search-utils/spill"
	"github.com/informationgrid/ingrid-search-utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFacets(t *testing.T, optFns ...Option) *Facets {
	t.Helper()
	f, err := New(optFns...)
	require.NoError(t, err)
	require.NoError(t, f.Initialize(context.Background()))
	t.Cleanup(func() { _ = f.Close(context.Background()) })
	return f
}

func TestNew_IndexFacets(t *testing.T) {
	ctx := context.Background()
	f := newFacets(t, WithIndex(testutil.DummyIndex(2)))

	q, err := f.ParseRequest([]byte(`{"query": "wasser", "facets": [
		{"id": "partner"},
		{"id": "datatype", "classes": [{"id": "iso", "query": "datatype:csw AND metaclass:1 OR metaclass:3"}]}
	]}`))
	require.NoError(t, err)

	hits := &model.Hits{Total: 4}
	f.AddFacets(ctx, hits, q)
	require.Empty(t, hits.FacetErrors)
	assert.Equal(t, model.Counts{"partner:bund": 2, "partner:ni": 2, "datatype:iso": 1}, hits.Facets)

	q, err = f.ParseRequest([]byte(`{"query": "-antike", "facets": [{"id": "partner"}]}`))
	require.NoError(t, err)
	hits = &model.Hits{}
	f.AddFacets(ctx, hits, q)
	assert.Equal(t, int64(0), hits.Facets["partner:bund"])

	stats := f.Stats()
	assert.Equal(t, facet.StateServing, stats.State)
	assert.Equal(t, 3, stats.Registry.Cached)
}

func TestNew_DescriptorWithoutIndex(t *testing.T) {
	f := newFacets(t,
		WithDescriptor(descriptor.Static([]string{"he", "ni"}, []string{"he_p1", "ni_p2"})),
		WithConfiguredFacets(map[string][]string{"location": {"location:ffm"}}),
		WithConfiguredClasses("datatype:csw"),
	)
	assert.Nil(t, f.Registry())

	q, err := query.WithFacets("wasser",
		query.FacetSpec{ID: "partner"},
		query.FacetSpec{ID: "location"},
		query.FacetSpec{ID: "provider_ni"},
		query.FacetSpec{ID: "datatype", Classes: []query.ClassSpec{{ID: "csw"}, {ID: "iso"}}},
	)
	require.NoError(t, err)

	hits := &model.Hits{Total: 3}
	f.AddFacets(context.Background(), hits, q)
	assert.Equal(t, model.Counts{
		"partner:he":        3,
		"partner:ni":        3,
		"location:ffm":      3,
		"provider_ni:he_p1": 3,
		"provider_ni:ni_p2": 3,
		"datatype:csw":      3,
	}, hits.Facets)
}

func TestNew_CounterPrecedence(t *testing.T) {
	f := newFacets(t,
		WithIndex(testutil.DummyIndex()),
		WithConfiguredFacets(map[string][]string{"partner": {"partner:bund"}}),
	)

	q, err := query.WithFacets("wasser", query.FacetSpec{ID: "partner"})
	require.NoError(t, err)
	hits := &model.Hits{}
	f.AddFacets(context.Background(), hits, q)
	assert.Equal(t, model.Counts{"partner:bund": 4, "partner:ni": 2}, hits.Facets)
}

func TestNew_SpillStore(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}
	f := newFacets(t,
		WithIndex(testutil.DummyIndex()),
		WithCacheCapacity(1),
		WithSpillStore(blobs, func(o *spill.Options) { o.Compression = spill.CompressionZSTD }),
		WithResourceLimits(ResourceLimits{SpillBytesPerSec: 1 << 20}),
		WithMetricsCollector(metrics),
	)

	q, err := query.WithFacets("wasser", query.FacetSpec{ID: "provider"})
	require.NoError(t, err)
	for range 2 {
		hits := &model.Hits{}
		f.AddFacets(ctx, hits, q)
		require.Empty(t, hits.FacetErrors)
		assert.Equal(t, model.Counts{"provider:bund_2": 2, "provider:ni_2": 2, "provider:bund_1": 0}, hits.Facets)
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.Discoveries)
	assert.Equal(t, int64(3), stats.Restores)
	assert.Positive(t, stats.Spills)
	assert.Equal(t, int64(2), stats.CountRequests)
	assert.Positive(t, blobs.Len())

	require.NoError(t, f.Close(ctx))
	assert.Zero(t, blobs.Len())
}

func TestNew_DefaultSpill(t *testing.T) {
	ctx := context.Background()
	q, err := query.WithFacets("wasser", query.FacetSpec{ID: "provider"})
	require.NoError(t, err)
	want := model.Counts{"provider:bund_2": 2, "provider:ni_2": 2, "provider:bund_1": 0}

	f := newFacets(t, WithIndex(testutil.DummyIndex()), WithCacheCapacity(1))
	for range 2 {
		hits := &model.Hits{}
		f.AddFacets(ctx, hits, q)
		require.Empty(t, hits.FacetErrors)
		assert.Equal(t, want, hits.Facets)
	}
	stats := f.Stats().Registry
	assert.Equal(t, int64(1), stats.Discoveries)
	assert.Positive(t, stats.Spills)
	assert.Equal(t, int64(3), stats.Restores)

	// without a spill tier the evicted classes are discovered again
	f = newFacets(t, WithIndex(testutil.DummyIndex()), WithCacheCapacity(1), WithoutSpill())
	for range 2 {
		hits := &model.Hits{}
		f.AddFacets(ctx, hits, q)
		require.Empty(t, hits.FacetErrors)
		assert.Equal(t, want, hits.Facets)
	}
	stats = f.Stats().Registry
	assert.Equal(t, int64(2), stats.Discoveries)
	assert.Zero(t, stats.Spills)
}

func TestNew_WarmupAndSubstitutions(t *testing.T) {
	warmup, err := query.WithFacets("wasser", query.FacetSpec{ID: "partner"})
	require.NoError(t, err)

	f := newFacets(t,
		WithIndex(testutil.DummyIndex()),
		WithWarmupQuery(warmup),
		WithClassSubstitutions(facet.ClassSubstitutions{
			"datatype:iso": {"datatype:csw": "datatype:iso"},
		}),
	)
	_, ok := f.Registry().Discovered("partner")
	assert.True(t, ok)
	assert.Equal(t, facet.StateInitialized, f.Stats().State)

	q, err := query.WithFacets("wasser", query.FacetSpec{ID: "datatype", Classes: []query.ClassSpec{
		{ID: "iso", Query: "datatype:csw"},
	}})
	require.NoError(t, err)
	counts, err := f.Counts(context.Background(), q, bitmap.FullSet(8))
	require.NoError(t, err)
	assert.Equal(t, model.Counts{"datatype:iso": 5}, counts)
}

func TestNew_StrictShards(t *testing.T) {
	f := newFacets(t, WithIndex(testutil.DummyIndex(3)), WithStrictShards(), WithShardParallelism(2))

	q, err := query.WithFacets("wasser", query.FacetSpec{ID: "partner"})
	require.NoError(t, err)
	_, err = f.Counts(context.Background(), q, bitmap.FullSet(3))
	assert.ErrorIs(t, err, ErrShardMismatch)
}

func TestNew_Configuration(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = New(WithCounters(nil))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFacets_ParseErrors(t *testing.T) {
	f := newFacets(t, WithIndex(testutil.DummyIndex()))

	_, err := f.ParseRequest([]byte(`{"query": "(wasser"}`))
	assert.ErrorIs(t, err, ErrParse)

	q, err := query.WithFacets("wasser", query.FacetSpec{ID: "datatype", Classes: []query.ClassSpec{
		{ID: "broken", Query: "datatype:"},
	}})
	require.NoError(t, err)
	hits := &model.Hits{}
	f.AddFacets(context.Background(), hits, q)
	require.Len(t, hits.FacetErrors, 1)
	assert.ErrorIs(t, hits.FacetErrors[0], ErrParse)
	assert.Empty(t, hits.Facets)
}

func TestFacets_Close(t *testing.T) {
	ctx := context.Background()
	f, err := New(WithIndex(testutil.DummyIndex()))
	require.NoError(t, err)
	require.NoError(t, f.Close(ctx))
	require.NoError(t, f.Close(ctx))

	assert.ErrorIs(t, f.Initialize(ctx), ErrClosed)

	q, err := query.WithFacets("wasser")
	require.NoError(t, err)
	hits := &model.Hits{}
	f.AddFacets(ctx, hits, q)
	assert.Equal(t, []error{ErrClosed}, hits.FacetErrors)

	_, err = f.Counts(ctx, q, bitmap.FullSet(8))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFacets_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFacets(t, WithIndex(testutil.DummyIndex()), WithLogger(logger))

	q, err := query.WithFacets("wasser", query.FacetSpec{ID: "partner"})
	require.NoError(t, err)
	f.AddFacets(context.Background(), &model.Hits{}, q)

	out := buf.String()
	assert.Contains(t, out, "facet caches cleared")
	assert.Contains(t, out, "facet discovery completed")
	assert.Contains(t, out, "facet counts attached")
}
