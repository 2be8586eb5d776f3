package model

import (
	"fmt"
	"strings"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
)

// UnknownHitCount marks a class whose hit count has not been computed.
const UnknownHitCount int64 = -1

// FacetsKey is the response key under which counts are attached.
const FacetsKey = "FACETS"

// ClassKey builds the conventional "<facet>:<class>" key.
func ClassKey(facet, class string) string {
	return facet + ":" + class
}

// SplitClassKey splits a "<facet>:<class>" key at its first colon.
func SplitClassKey(key string) (facet, class string, ok bool) {
	return strings.Cut(key, ":")
}

// FacetClassDefinition defines one class of a facet by a query fragment.
type FacetClassDefinition struct {
	// Name is the composite "<facet>:<class>" key.
	Name string
	// Query is the membership fragment. Empty yields an empty class.
	Query string
	// HitCount is UnknownHitCount until computed.
	HitCount int64
}

// NewFacetClassDefinition returns a class definition with an unknown hit count.
func NewFacetClassDefinition(name, query string) *FacetClassDefinition {
	return &FacetClassDefinition{Name: name, Query: query, HitCount: UnknownHitCount}
}

func (d *FacetClassDefinition) String() string {
	return fmt.Sprintf("FacetClassDefinition(%s, %q)", d.Name, d.Query)
}

// FacetDefinition describes one requested facet.
type FacetDefinition struct {
	Name  string
	Field string
	// QueryFragment restricts the population values are discovered in.
	QueryFragment string
	Classes       []*FacetClassDefinition
}

// NewFacetDefinition returns a definition whose field defaults to name.
func NewFacetDefinition(name, field string) *FacetDefinition {
	if field == "" {
		field = name
	}
	return &FacetDefinition{Name: name, Field: field}
}

// AddClass appends a class definition.
func (d *FacetDefinition) AddClass(c *FacetClassDefinition) {
	d.Classes = append(d.Classes, c)
}

// HasClasses reports whether classes are given explicitly. Without classes
// the facet's classes are discovered from the index.
func (d *FacetDefinition) HasClasses() bool {
	return len(d.Classes) > 0
}

// Class returns the class definition with the given name.
func (d *FacetDefinition) Class(name string) (*FacetClassDefinition, bool) {
	for _, c := range d.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (d *FacetDefinition) String() string {
	return fmt.Sprintf("FacetDefinition(%s, field=%s, fragment=%q, classes=%d)",
		d.Name, d.Field, d.QueryFragment, len(d.Classes))
}

// FacetClass is a named per-shard membership bitmap. It must not be modified
// once produced; it is shared between concurrent requests.
type FacetClass struct {
	name    string
	bitsets bitmap.Set
}

// NewFacetClass wraps bitsets under name.
func NewFacetClass(name string, bitsets bitmap.Set) *FacetClass {
	return &FacetClass{name: name, bitsets: bitsets}
}

// Name returns the class name.
func (c *FacetClass) Name() string { return c.name }

// Bitsets returns the per-shard bitmaps. Callers must not modify them.
func (c *FacetClass) Bitsets() bitmap.Set { return c.bitsets }

// Cardinality returns the number of documents in the class across shards.
func (c *FacetClass) Cardinality() uint64 { return c.bitsets.Cardinality() }

func (c *FacetClass) String() string {
	return fmt.Sprintf("FacetClass(%s, shards=%d, docs=%d)", c.name, len(c.bitsets), c.Cardinality())
}

// TermFrequency is a candidate value considered during discovery.
type TermFrequency struct {
	Field   string
	Value   string
	DocFreq uint64
}

// ClassName returns the "field:value" name of the class the candidate becomes.
func (t TermFrequency) ClassName() string {
	return ClassKey(t.Field, t.Value)
}
