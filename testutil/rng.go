package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/informationgrid/ingrid-search-utils/index/memory"
)

// RNG wraps a seeded random source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Skewed returns a value in [0,n) where small values are far more likely,
// so generated fields have a long tail of rare values.
func (r *RNG) Skewed(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.rand.Float64()
	return int(f * f * f * float64(n))
}

// Corpus builds a random index of docs documents over shards shards. For
// every entry of cardinality, the field gets one of that many values named
// "<field>_<n>" drawn with Skewed. Every document also carries a "content"
// text of three words from a small vocabulary.
func (r *RNG) Corpus(docs, shards int, cardinality map[string]int) *memory.Index {
	b := memory.NewBuilder(func(o *memory.Options) { o.Shards = shards })
	for i := 0; i < docs; i++ {
		doc := make(map[string]string, len(cardinality)+1)
		for field, n := range cardinality {
			doc[field] = fmt.Sprintf("%s_%d", field, r.Skewed(n))
		}
		doc["content"] = fmt.Sprintf("%s %s %s", vocabulary[r.Intn(len(vocabulary))],
			vocabulary[r.Intn(len(vocabulary))], vocabulary[r.Intn(len(vocabulary))])
		b.AddFields(doc)
	}
	return b.Build()
}

var vocabulary = []string{
	"wasser", "wald", "boden", "luft", "klima", "energie", "natur", "umwelt",
	"laerm", "abfall", "strahlung", "chemikalien",
}
