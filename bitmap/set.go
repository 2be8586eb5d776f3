package bitmap

// Set holds one bitmap per shard, indexed by shard position.
// Nil entries are treated as empty.
type Set []*Bitmap

// NewSet creates a set of n empty bitmaps.
func NewSet(n int) Set {
	s := make(Set, n)
	for i := range s {
		s[i] = New()
	}
	return s
}

// FullSet creates a set where shard i has every id below sizes[i] set.
func FullSet(sizes ...uint32) Set {
	s := make(Set, len(sizes))
	for i, n := range sizes {
		s[i] = Full(n)
	}
	return s
}

// Cardinality sums the cardinality of every shard.
func (s Set) Cardinality() uint64 {
	var total uint64
	for _, b := range s {
		total += b.Cardinality()
	}
	return total
}

// Clone deep copies every shard.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for i, b := range s {
		if b != nil {
			out[i] = b.Clone()
		}
	}
	return out
}

// IntersectCardinality returns Σ |base[i] ∧ class[i]| over the shards both
// sets have. mismatch reports whether the shard counts differed; the extra
// shards of the longer set are ignored.
func IntersectCardinality(base, class Set) (count uint64, mismatch bool) {
	n := min(len(base), len(class))
	for i := 0; i < n; i++ {
		count += base[i].AndCardinality(class[i])
	}
	return count, len(base) != len(class)
}
