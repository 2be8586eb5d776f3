package facet

import (
	"context"
	"sync"
	"testing"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/blobstore"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/spill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StoreAfterClearIsDropped(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	gen := r.generation.Load()
	require.NoError(t, r.Clear(ctx))
	r.store(gen, model.NewFacetClass("partner:bund", bitmap.Set{bitmap.Of(1)}))
	assert.Zero(t, r.Stats().Cached)

	r.store(r.generation.Load(), model.NewFacetClass("partner:ni", bitmap.Set{bitmap.Of(2)}))
	assert.Equal(t, 1, r.Stats().Cached)
}

func TestRegistry_StaleEvictionIsNotSpilled(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	r := NewRegistry(nil, func(o *RegistryOptions) { o.Spill = spill.New(blobs) })

	fc := model.NewFacetClass("partner:bund", bitmap.Set{bitmap.Of(1, 2)})
	stale := cachedClass{gen: r.generation.Load(), class: fc}
	require.NoError(t, r.Clear(ctx))

	r.evicted(fc.Name(), stale)
	assert.Zero(t, blobs.Len())
	_, ok := r.restore(ctx, fc.Name())
	assert.False(t, ok)

	r.evicted(fc.Name(), cachedClass{gen: r.generation.Load(), class: fc})
	assert.Equal(t, 1, blobs.Len())
	restored, ok := r.restore(ctx, fc.Name())
	require.True(t, ok)
	assert.Equal(t, uint64(2), restored.Cardinality())
}

func TestRegistry_ConcurrentStoreAndClear(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				gen := r.generation.Load()
				r.store(gen, model.NewFacetClass(string(rune('a'+g))+string(rune('0'+i%10)), bitmap.NewSet(1)))
			}
		}()
	}
	for range 20 {
		require.NoError(t, r.Clear(ctx))
	}
	wg.Wait()

	// every cached entry belongs to the live generation
	for _, sh := range []string{"a", "b", "c", "d"} {
		for i := range 10 {
			name := sh + string(rune('0'+i))
			if c, ok := r.classes.Get(name); ok {
				assert.Equal(t, r.generation.Load(), c.gen, name)
			}
		}
	}
}
