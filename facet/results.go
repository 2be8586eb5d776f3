package facet

import (
	"context"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/index"
	"github.com/informationgrid/ingrid-search-utils/internal/cache"
	"github.com/informationgrid/ingrid-search-utils/internal/conv"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
)

// ResultSource provides the per-shard bitmaps of a search result.
type ResultSource interface {
	Results(ctx context.Context, hits *model.Hits, q *query.Query) (bitmap.Set, error)
}

// resetter is implemented by result sources holding index derived state.
type resetter interface {
	Reset()
}

// DefaultFilterCacheSize is the number of result filters IndexResults keeps.
const DefaultFilterCacheSize = 64

// IndexResults runs the query on the index. Result bitmaps are cached by
// query text until Reset.
type IndexResults struct {
	reader   index.Reader
	compiler *query.Compiler
	filters  *cache.LRU[bitmap.Set]
}

var _ ResultSource = (*IndexResults)(nil)

// NewIndexResults creates a result source over r. cacheSize bounds the
// filter cache; zero or less selects DefaultFilterCacheSize.
func NewIndexResults(r index.Reader, c *query.Compiler, cacheSize int) *IndexResults {
	if cacheSize <= 0 {
		cacheSize = DefaultFilterCacheSize
	}
	return &IndexResults{
		reader:   r,
		compiler: c,
		filters:  cache.NewLRU(cacheSize, cache.Options[bitmap.Set]{}),
	}
}

// Results implements ResultSource. The returned set is shared and must not
// be modified.
func (r *IndexResults) Results(ctx context.Context, _ *model.Hits, q *query.Query) (bitmap.Set, error) {
	key := q.String()
	if set, ok := r.filters.Get(key); ok {
		return set, nil
	}
	set, err := r.compiler.Execute(ctx, r.compiler.CompileQuery(q), r.reader)
	if err != nil {
		return nil, err
	}
	r.filters.Set(key, set)
	return set, nil
}

// Reset drops the cached filters.
func (r *IndexResults) Reset() { r.filters.Clear() }

// HitCountResults serves searches without an index of their own: the result
// is a single bitmap with Hits.Total documents set.
type HitCountResults struct{}

var _ ResultSource = HitCountResults{}

// Results implements ResultSource.
func (HitCountResults) Results(_ context.Context, hits *model.Hits, _ *query.Query) (bitmap.Set, error) {
	var total uint32
	if hits != nil {
		total = conv.SaturateUint32(hits.Total)
	}
	return bitmap.Set{bitmap.Full(total)}, nil
}
