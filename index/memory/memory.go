// Package memory implements an immutable in-memory sharded inverted index.
//
// It serves as the reference index.Reader for tests and for embedders with
// small corpora. Documents are assigned to shards round-robin.
package memory

import (
	"fmt"
	"iter"
	"slices"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/index"
)

// Document maps field names to their values.
type Document map[string][]string

// Options configures a Builder.
type Options struct {
	Shards     int
	TextFields []string
}

// DefaultOptions is a single shard with "content" and "title" analyzed as text.
var DefaultOptions = Options{
	Shards:     1,
	TextFields: []string{"content", "title"},
}

// Builder collects documents for an Index.
type Builder struct {
	opts   Options
	text   map[string]bool
	shards []*shard
	next   int
}

// NewBuilder creates a builder. Text fields are analyzed with index.Analyze;
// all other fields are indexed verbatim.
func NewBuilder(optFns ...func(o *Options)) *Builder {
	opts := DefaultOptions
	opts.TextFields = slices.Clone(DefaultOptions.TextFields)
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Shards <= 0 {
		opts.Shards = 1
	}

	b := &Builder{
		opts:   opts,
		text:   make(map[string]bool, len(opts.TextFields)),
		shards: make([]*shard, opts.Shards),
	}
	for _, f := range opts.TextFields {
		b.text[f] = true
	}
	for i := range b.shards {
		b.shards[i] = newShard()
	}
	return b
}

// Add indexes doc and returns its shard and shard-local id.
func (b *Builder) Add(doc Document) (int, uint32) {
	si := b.next % len(b.shards)
	b.next++
	s := b.shards[si]
	id := s.maxDoc
	s.maxDoc++

	for field, values := range doc {
		for _, v := range values {
			if b.text[field] {
				for _, tok := range index.Analyze(v) {
					s.add(field, tok, id)
				}
				continue
			}
			s.add(field, v, id)
		}
	}
	return si, id
}

// AddFields indexes a document with one value per field.
func (b *Builder) AddFields(fields map[string]string) (int, uint32) {
	doc := make(Document, len(fields))
	for k, v := range fields {
		doc[k] = []string{v}
	}
	return b.Add(doc)
}

// Build freezes the collected documents. The builder must not be used afterwards.
func (b *Builder) Build() *Index {
	shards := make([]index.Shard, len(b.shards))
	for i, s := range b.shards {
		s.freeze()
		shards[i] = s
	}
	return &Index{shards: shards, text: b.text}
}

// Index is an immutable sharded inverted index.
type Index struct {
	shards []index.Shard
	text   map[string]bool
}

var _ index.Reader = (*Index)(nil)

// Shards implements index.Reader.
func (idx *Index) Shards() []index.Shard { return idx.shards }

// IsText reports whether field was analyzed at build time.
func (idx *Index) IsText(field string) bool { return idx.text[field] }

// NumDocs returns the number of documents across shards.
func (idx *Index) NumDocs() int {
	n := 0
	for _, s := range idx.shards {
		n += int(s.MaxDoc())
	}
	return n
}

type shard struct {
	maxDoc   uint32
	postings map[string]map[string]*bitmap.Bitmap
	terms    map[string][]string
}

func newShard() *shard {
	return &shard{postings: make(map[string]map[string]*bitmap.Bitmap)}
}

func (s *shard) add(field, value string, id uint32) {
	values, ok := s.postings[field]
	if !ok {
		values = make(map[string]*bitmap.Bitmap)
		s.postings[field] = values
	}
	bm, ok := values[value]
	if !ok {
		bm = bitmap.New()
		values[value] = bm
	}
	bm.Add(id)
}

func (s *shard) freeze() {
	s.terms = make(map[string][]string, len(s.postings))
	for field, values := range s.postings {
		keys := make([]string, 0, len(values))
		for v := range values {
			keys = append(keys, v)
		}
		slices.Sort(keys)
		s.terms[field] = keys
	}
}

func (s *shard) MaxDoc() uint32 { return s.maxDoc }

func (s *shard) Terms(field string) (iter.Seq2[string, uint64], error) {
	keys := s.terms[field]
	values := s.postings[field]
	return func(yield func(string, uint64) bool) {
		for _, k := range keys {
			if !yield(k, values[k].Cardinality()) {
				return
			}
		}
	}, nil
}

func (s *shard) Postings(field, value string) (*bitmap.Bitmap, error) {
	if s.terms == nil {
		return nil, fmt.Errorf("memory: shard not built")
	}
	if bm, ok := s.postings[field][value]; ok {
		return bm, nil
	}
	return bitmap.New(), nil
}
