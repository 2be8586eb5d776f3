package facet_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/blobstore"
	"github.com/informationgrid/ingrid-search-utils/facet"
	"github.com/informationgrid/ingrid-search-utils/index"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/spill"
	"github.com/informationgrid/ingrid-search-utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newRegistry(r index.Reader, optFns ...func(o *facet.RegistryOptions)) (*facet.Registry, *countingProducer) {
	p := &countingProducer{ClassProducer: newProducer(r)}
	return facet.NewRegistry(p, optFns...), p
}

func classDef(facetName string, classes ...string) *model.FacetDefinition {
	def := model.NewFacetDefinition(facetName, "")
	for _, c := range classes {
		def.AddClass(model.NewFacetClassDefinition(c, c))
	}
	return def
}

func TestRegistry_ExplicitClassesAreCached(t *testing.T) {
	ctx := context.Background()
	reg, p := newRegistry(testutil.DummyIndex())

	def := classDef("partner", "partner:bund", "partner:ni")
	classes, err := reg.FacetClasses(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, []string{"partner:bund", "partner:ni"}, classNames(classes))

	again, err := reg.FacetClasses(ctx, def)
	require.NoError(t, err)
	assert.Same(t, classes[0], again[0])
	assert.Same(t, classes[1], again[1])

	assert.Equal(t, int64(2), p.classes.Load())
	stats := reg.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Productions)
	assert.Equal(t, 2, stats.Cached)
}

func TestRegistry_DiscoveryIsRemembered(t *testing.T) {
	ctx := context.Background()
	reg, p := newRegistry(testutil.DummyIndex(3))

	def := model.NewFacetDefinition("partner", "")
	classes, err := reg.FacetClasses(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, []string{"partner:bund", "partner:ni"}, classNames(classes))

	names, ok := reg.Discovered("partner")
	require.True(t, ok)
	assert.Equal(t, []string{"partner:bund", "partner:ni"}, names)

	again, err := reg.FacetClasses(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, classNames(classes), classNames(again))
	assert.Equal(t, int64(1), p.discoveries.Load())

	// a discovered class also serves explicit requests
	_, err = reg.FacetClasses(ctx, classDef("partner", "partner:ni"))
	require.NoError(t, err)
	assert.Zero(t, p.classes.Load())
}

func TestRegistry_ClearForgetsEverything(t *testing.T) {
	ctx := context.Background()
	reg, p := newRegistry(testutil.DummyIndex())

	_, err := reg.FacetClasses(ctx, model.NewFacetDefinition("partner", ""))
	require.NoError(t, err)
	_, err = reg.FacetClasses(ctx, classDef("datatype", "datatype:iso"))
	require.NoError(t, err)

	require.NoError(t, reg.Clear(ctx))
	_, ok := reg.Discovered("partner")
	assert.False(t, ok)
	assert.Zero(t, reg.Stats().Cached)
	assert.Equal(t, uint64(1), reg.Stats().Generation)

	_, err = reg.FacetClasses(ctx, model.NewFacetDefinition("partner", ""))
	require.NoError(t, err)
	_, err = reg.FacetClasses(ctx, classDef("datatype", "datatype:iso"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.discoveries.Load())
	assert.Equal(t, int64(2), p.classes.Load())
}

func TestRegistry_SpillRestoresEvictedClasses(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	reg, p := newRegistry(testutil.DummyIndex(2), func(o *facet.RegistryOptions) {
		o.Capacity = 1
		o.Spill = spill.New(blobs)
	})

	bund, err := reg.FacetClasses(ctx, classDef("partner", "partner:bund"))
	require.NoError(t, err)
	_, err = reg.FacetClasses(ctx, classDef("partner", "partner:ni"))
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.Len())

	restored, err := reg.FacetClasses(ctx, classDef("partner", "partner:bund"))
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, "partner:bund", restored[0].Name())
	require.Len(t, restored[0].Bitsets(), 2)
	for i := range restored[0].Bitsets() {
		assert.True(t, bund[0].Bitsets()[i].Equals(restored[0].Bitsets()[i]))
	}

	assert.Equal(t, int64(2), p.classes.Load())
	stats := reg.Stats()
	assert.Equal(t, int64(1), stats.Restores)
	assert.Equal(t, int64(2), stats.Spills)

	require.NoError(t, reg.Clear(ctx))
	assert.Zero(t, blobs.Len())
}

func TestRegistry_SpilledDiscoveryStaysRemembered(t *testing.T) {
	ctx := context.Background()
	reg, p := newRegistry(testutil.DummyIndex(), func(o *facet.RegistryOptions) {
		o.Capacity = 1
		o.Spill = spill.New(blobstore.NewMemoryStore(), func(o *spill.Options) {
			o.Compression = spill.CompressionZSTD
		})
	})

	def := model.NewFacetDefinition("provider", "")
	first, err := reg.FacetClasses(ctx, def)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := reg.FacetClasses(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, classNames(first), classNames(second))
	for i := range first {
		assert.Equal(t, first[i].Cardinality(), second[i].Cardinality())
	}
	assert.Equal(t, int64(1), p.discoveries.Load())
	assert.Positive(t, reg.Stats().Restores)
}

func TestRegistry_EvictionWithoutSpillReproduces(t *testing.T) {
	ctx := context.Background()
	reg, p := newRegistry(testutil.DummyIndex(), func(o *facet.RegistryOptions) { o.Capacity = 1 })

	for _, name := range []string{"partner:bund", "partner:ni", "partner:bund"} {
		_, err := reg.FacetClasses(ctx, classDef("partner", name))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), p.classes.Load())
	assert.Zero(t, reg.Stats().Spills)
}

func TestRegistry_FailedDiscoveryIsRetried(t *testing.T) {
	ctx := context.Background()
	faulty := testutil.NewFaultyReader(testutil.DummyIndex())
	reg, p := newRegistry(faulty)
	def := model.NewFacetDefinition("partner", "")

	faulty.AddRule("partner", testutil.Fault{FailPostings: true})
	classes, err := reg.FacetClasses(ctx, def)
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Empty(t, classes)
	_, ok := reg.Discovered("partner")
	assert.False(t, ok)

	faulty.ClearRules()
	classes, err = reg.FacetClasses(ctx, def)
	require.NoError(t, err)
	assert.Len(t, classes, 2)
	assert.Equal(t, int64(2), p.discoveries.Load())

	_, ok = reg.Discovered("partner")
	assert.True(t, ok)
}

func TestRegistry_ExplicitClassErrors(t *testing.T) {
	reg, _ := newRegistry(testutil.DummyIndex())

	def := model.NewFacetDefinition("partner", "")
	def.AddClass(model.NewFacetClassDefinition("partner:bund", "partner:bund"))
	def.AddClass(model.NewFacetClassDefinition("partner:broken", "(partner:ni"))

	classes, err := reg.FacetClasses(context.Background(), def)
	require.Error(t, err)
	assert.Equal(t, []string{"partner:bund"}, classNames(classes))

	var ce *facet.ClassError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "partner:broken", ce.Class)
}

func TestRegistry_ClassesFromBeforeClearAreDropped(t *testing.T) {
	ctx := context.Background()
	p := &countingProducer{ClassProducer: newProducer(testutil.DummyIndex())}
	reg := facet.NewRegistry(p)

	var once sync.Once
	p.before = func() {
		once.Do(func() { require.NoError(t, reg.Clear(ctx)) })
	}

	classes, err := reg.FacetClasses(ctx, model.NewFacetDefinition("partner", ""))
	require.NoError(t, err)
	assert.Len(t, classes, 2)
	_, ok := reg.Discovered("partner")
	assert.False(t, ok)
	assert.Zero(t, reg.Stats().Cached)

	_, err = reg.FacetClasses(ctx, model.NewFacetDefinition("partner", ""))
	require.NoError(t, err)
	_, ok = reg.Discovered("partner")
	assert.True(t, ok)
	assert.Equal(t, 2, reg.Stats().Cached)
}

func TestRegistry_ConcurrentMissesShareProduction(t *testing.T) {
	ctx := context.Background()
	p := &countingProducer{
		ClassProducer: newProducer(testutil.DummyIndex(3)),
		before:        func() { time.Sleep(50 * time.Millisecond) },
	}
	reg := facet.NewRegistry(p)

	var g errgroup.Group
	results := make([][]*model.FacetClass, 16)
	for i := range results {
		g.Go(func() error {
			classes, err := reg.FacetClasses(ctx, model.NewFacetDefinition("partner", ""))
			results[i] = classes
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), p.discoveries.Load())
	for _, classes := range results {
		assert.Equal(t, []string{"partner:bund", "partner:ni"}, classNames(classes))
	}
}

// wideProducer discovers n synthetic classes for any facet.
type wideProducer struct {
	facet.ClassProducer
	n int
}

func (p wideProducer) ProduceClasses(_ context.Context, def *model.FacetDefinition) ([]*model.FacetClass, error) {
	out := make([]*model.FacetClass, p.n)
	for i := range out {
		out[i] = model.NewFacetClass(fmt.Sprintf("%s:v%03d", def.Field, i), bitmap.Set{bitmap.Of(uint32(i))})
	}
	return out, nil
}

func TestRegistry_FullDiscoveryStaysCached(t *testing.T) {
	ctx := context.Background()
	p := &countingProducer{ClassProducer: wideProducer{n: facet.DefaultMaxClasses}}
	reg := facet.NewRegistry(p)

	def := model.NewFacetDefinition("provider", "")
	for range 5 {
		classes, err := reg.FacetClasses(ctx, def)
		require.NoError(t, err)
		require.Len(t, classes, facet.DefaultMaxClasses)
	}

	assert.Equal(t, int64(1), p.discoveries.Load())
	stats := reg.Stats()
	assert.Equal(t, int64(1), stats.Discoveries)
	assert.Equal(t, facet.DefaultMaxClasses, stats.Cached)
	assert.Equal(t, int64(4*facet.DefaultMaxClasses), stats.Hits)
}

func TestRegistry_ClearDuringClassProduction(t *testing.T) {
	ctx := context.Background()
	reg, p := newRegistry(testutil.DummyIndex())

	var once sync.Once
	p.before = func() {
		once.Do(func() { require.NoError(t, reg.Clear(ctx)) })
	}

	classes, err := reg.FacetClasses(ctx, classDef("partner", "partner:bund"))
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Zero(t, reg.Stats().Cached)

	_, err = reg.FacetClasses(ctx, classDef("partner", "partner:bund"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.classes.Load())
	assert.Equal(t, 1, reg.Stats().Cached)
}
