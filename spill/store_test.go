package spill

import (
	"context"
	"fmt"
	"testing"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/blobstore"
	"github.com/informationgrid/ingrid-search-utils/codec"
	"github.com/informationgrid/ingrid-search-utils/internal/resource"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleClass(name string) *model.FacetClass {
	dense := bitmap.New()
	for i := uint32(0); i < 5000; i += 2 {
		dense.Add(i)
	}
	return model.NewFacetClass(name, bitmap.Set{bitmap.Of(1, 3, 7), nil, dense, bitmap.New()})
}

func assertSameClass(t *testing.T, want, got *model.FacetClass) {
	t.Helper()
	require.Equal(t, want.Name(), got.Name())
	require.Len(t, got.Bitsets(), len(want.Bitsets()))
	for i, b := range want.Bitsets() {
		if b == nil {
			assert.Nil(t, got.Bitsets()[i], "shard %d", i)
			continue
		}
		assert.True(t, b.Equals(got.Bitsets()[i]), "shard %d", i)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
			t.Run(fmt.Sprintf("%s/%s", comp, c.Name()), func(t *testing.T) {
				s := New(blobstore.NewMemoryStore(), func(o *Options) {
					o.Compression = comp
					o.Codec = c
				})
				class := sampleClass("provider:ni_lfu")

				require.NoError(t, s.Save(ctx, 1, class))
				got, err := s.Load(ctx, 1, class.Name())
				require.NoError(t, err)
				assertSameClass(t, class, got)
				assert.Equal(t, class.Cardinality(), got.Cardinality())
			})
		}
	}
}

func TestStore_LocalBackend(t *testing.T) {
	ctx := context.Background()
	local, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{SpillBytesPerSec: 1 << 20})
	s := New(local, func(o *Options) {
		o.Compression = CompressionZSTD
		o.Resources = rc
	})

	class := sampleClass("partner:bund")
	require.NoError(t, s.Save(ctx, 7, class))
	got, err := s.Load(ctx, 7, "partner:bund")
	require.NoError(t, err)
	assertSameClass(t, class, got)
}

func TestStore_Generations(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	s := New(mem)

	require.NoError(t, s.Save(ctx, 1, sampleClass("a:x")))
	require.NoError(t, s.Save(ctx, 2, sampleClass("a:x")))
	require.NoError(t, s.Save(ctx, 2, sampleClass("a:y")))

	_, err := s.Load(ctx, 3, "a:x")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.PurgeGeneration(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.Load(ctx, 1, "a:x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Remove(ctx, 2, "a:y"))
	_, err = s.Load(ctx, 2, "a:y")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err = s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, mem.Len())
}

func TestStore_NamesAreEscaped(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	s := New(mem)

	require.NoError(t, s.Save(ctx, 0, sampleClass("provider_bund:../../etc")))
	names, err := mem.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.NotContains(t, names[0][2:], "/")

	got, err := s.Load(ctx, 0, "provider_bund:../../etc")
	require.NoError(t, err)
	assert.Equal(t, "provider_bund:../../etc", got.Name())
}

func TestStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	s := New(mem)

	require.NoError(t, s.Save(ctx, 0, sampleClass("a:b")))
	name := blobName(0, "a:b")
	data, err := blobstore.ReadAll(ctx, mem, name)
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xff
	require.NoError(t, mem.Put(ctx, name, flipped))
	_, err = s.Load(ctx, 0, "a:b")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, mem.Put(ctx, name, []byte("nope")))
	_, err = s.Load(ctx, 0, "a:b")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, mem.Put(ctx, name, data))
	_, err = s.Load(ctx, 0, "a:b")
	assert.NoError(t, err)
}

func TestCompressBlock_Incompressible(t *testing.T) {
	data := []byte{1, 2, 3}
	for _, comp := range []Compression{CompressionLZ4, CompressionZSTD} {
		block, err := compressBlock(data, comp)
		require.NoError(t, err)
		out, err := decompressBlock(block, comp)
		require.NoError(t, err)
		assert.Equal(t, data, out)
	}

	_, err := decompressBlock([]byte{1}, CompressionLZ4)
	assert.Error(t, err)
}

func TestCompression_String(t *testing.T) {
	assert.Equal(t, "lz4", CompressionLZ4.String())
	assert.Equal(t, "compression(9)", Compression(9).String())
}
