package bitmap

import (
	"io"
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is a compressed set of document ids within one shard.
// It wraps the official roaring implementation.
type Bitmap struct {
	rb *roaring.Bitmap
}

var bitmapPool = sync.Pool{
	New: func() any {
		return &Bitmap{rb: roaring.New()}
	},
}

// New creates an empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// Of creates a bitmap holding the given ids.
func Of(ids ...uint32) *Bitmap {
	return &Bitmap{rb: roaring.BitmapOf(ids...)}
}

// Full creates a bitmap with every id in [0, n) set.
func Full(n uint32) *Bitmap {
	b := New()
	b.SetAll(n)
	return b
}

// Get takes a cleared bitmap from the pool. Call Put when done.
func Get() *Bitmap {
	b := bitmapPool.Get().(*Bitmap)
	b.rb.Clear()
	return b
}

// Put returns a bitmap to the pool.
func Put(b *Bitmap) {
	if b == nil {
		return
	}
	b.rb.Clear()
	bitmapPool.Put(b)
}

// Add adds a document id.
func (b *Bitmap) Add(id uint32) {
	b.rb.Add(id)
}

// Contains reports whether id is set.
func (b *Bitmap) Contains(id uint32) bool {
	return b.rb.Contains(id)
}

// SetAll sets every id in [0, n).
func (b *Bitmap) SetAll(n uint32) {
	if n == 0 {
		return
	}
	b.rb.AddRange(0, uint64(n))
}

// IsEmpty returns true if no id is set.
func (b *Bitmap) IsEmpty() bool {
	return b == nil || b.rb.IsEmpty()
}

// Cardinality returns the number of set ids. A nil bitmap is empty.
func (b *Bitmap) Cardinality() uint64 {
	if b == nil {
		return 0
	}
	return b.rb.GetCardinality()
}

// And intersects b with other in place.
func (b *Bitmap) And(other *Bitmap) {
	if other == nil {
		b.rb.Clear()
		return
	}
	b.rb.And(other.rb)
}

// Or unions other into b.
func (b *Bitmap) Or(other *Bitmap) {
	if other == nil {
		return
	}
	b.rb.Or(other.rb)
}

// AndNot removes every id of other from b.
func (b *Bitmap) AndNot(other *Bitmap) {
	if other == nil {
		return
	}
	b.rb.AndNot(other.rb)
}

// AndCardinality returns |b ∧ other| without materializing the intersection.
func (b *Bitmap) AndCardinality(other *Bitmap) uint64 {
	if b == nil || other == nil {
		return 0
	}
	return b.rb.AndCardinality(other.rb)
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	if b == nil {
		return New()
	}
	return &Bitmap{rb: b.rb.Clone()}
}

// Equals reports whether both bitmaps hold the same ids.
func (b *Bitmap) Equals(other *Bitmap) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return b.IsEmpty() && other.IsEmpty()
	}
	return b.rb.Equals(other.rb)
}

// ForEach calls fn for each id in ascending order until fn returns false.
func (b *Bitmap) ForEach(fn func(id uint32) bool) {
	if b == nil {
		return
	}
	it := b.rb.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			break
		}
	}
}

// Iterator returns an iterator over the ids in ascending order.
func (b *Bitmap) Iterator() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		b.ForEach(yield)
	}
}

// ToArray returns the ids as a sorted slice, nil when empty.
func (b *Bitmap) ToArray() []uint32 {
	if b.IsEmpty() {
		return nil
	}
	return b.rb.ToArray()
}

// SizeInBytes returns the serialized size of the bitmap.
func (b *Bitmap) SizeInBytes() uint64 {
	return b.rb.GetSerializedSizeInBytes()
}

// WriteTo writes the bitmap in the portable roaring format.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	return b.rb.WriteTo(w)
}

// ReadFrom replaces the content of b with a bitmap read from r.
func (b *Bitmap) ReadFrom(r io.Reader) (int64, error) {
	return b.rb.ReadFrom(r)
}
