package model

import (
	"testing"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/stretchr/testify/assert"
)

func TestClassKey(t *testing.T) {
	assert.Equal(t, "partner:bund", ClassKey("partner", "bund"))

	f, c, ok := SplitClassKey("provider_bund:bund_1")
	assert.True(t, ok)
	assert.Equal(t, "provider_bund", f)
	assert.Equal(t, "bund_1", c)

	_, _, ok = SplitClassKey("nocolon")
	assert.False(t, ok)
}

func TestFacetDefinition(t *testing.T) {
	def := NewFacetDefinition("partner", "")
	assert.Equal(t, "partner", def.Field)
	assert.False(t, def.HasClasses())

	def.AddClass(NewFacetClassDefinition("partner:bund", "partner:bund"))
	assert.True(t, def.HasClasses())
	assert.Equal(t, UnknownHitCount, def.Classes[0].HitCount)

	c, ok := def.Class("partner:bund")
	assert.True(t, ok)
	assert.Equal(t, "partner:bund", c.Query)

	_, ok = def.Class("partner:ni")
	assert.False(t, ok)
}

func TestFacetClass(t *testing.T) {
	fc := NewFacetClass("partner:bund", bitmap.Set{bitmap.Of(1, 2), bitmap.Of(3)})
	assert.Equal(t, "partner:bund", fc.Name())
	assert.Equal(t, uint64(3), fc.Cardinality())
	assert.Len(t, fc.Bitsets(), 2)
	assert.Contains(t, fc.String(), "docs=3")
}

func TestCountsPutNeverOverwrites(t *testing.T) {
	c := Counts{}
	assert.True(t, c.Put("partner:bund", 2))
	assert.False(t, c.Put("partner:bund", 7))
	assert.Equal(t, int64(2), c["partner:bund"])
	assert.True(t, c.Has("partner:bund"))

	c.Put("a:b", 1)
	assert.Equal(t, []string{"a:b", "partner:bund"}, c.Keys())
}

func TestTermFrequencyClassName(t *testing.T) {
	tf := TermFrequency{Field: "provider", Value: "bund_1", DocFreq: 2}
	assert.Equal(t, "provider:bund_1", tf.ClassName())
}
