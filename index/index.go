package index

import (
	"errors"
	"iter"
	"strings"
	"unicode"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
)

// ErrUnknownField is returned when a field is not indexed.
var ErrUnknownField = errors.New("index: unknown field")

// Shard is one independent partition of the index.
type Shard interface {
	// MaxDoc returns the exclusive upper bound of document ids in the shard.
	MaxDoc() uint32

	// Terms enumerates the distinct values of field in ascending order with
	// their document frequency. An unindexed field yields nothing.
	Terms(field string) (iter.Seq2[string, uint64], error)

	// Postings returns the documents holding value in field. The result may
	// be shared and must not be modified. A missing value yields an empty
	// bitmap.
	Postings(field, value string) (*bitmap.Bitmap, error)
}

// Reader gives access to the shards of an index.
type Reader interface {
	Shards() []Shard
}

// Sizes returns MaxDoc of every shard of r.
func Sizes(r Reader) []uint32 {
	shards := r.Shards()
	out := make([]uint32, len(shards))
	for i, s := range shards {
		out[i] = s.MaxDoc()
	}
	return out
}

// Analyze splits text into lower-cased tokens at every rune that is neither a
// letter nor a digit. Text fields are indexed and queried through it.
func Analyze(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
