package testutil

import (
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/index"
)

// ErrInjected is returned by injected faults unless a rule sets its own error.
var ErrInjected = errors.New("testutil: injected fault")

// Fault defines the failures of one field.
type Fault struct {
	FailTerms    bool
	FailPostings bool
	Err          error
}

// FaultyReader wraps an index.Reader and fails shard access per field.
// It also counts postings lookups.
type FaultyReader struct {
	r      index.Reader
	shards []index.Shard

	mu    sync.Mutex
	rules map[string]Fault

	lookups atomic.Int64
}

// NewFaultyReader wraps r.
func NewFaultyReader(r index.Reader) *FaultyReader {
	f := &FaultyReader{r: r, rules: make(map[string]Fault)}
	for _, s := range r.Shards() {
		f.shards = append(f.shards, &faultyShard{Shard: s, f: f})
	}
	return f
}

// AddRule sets the fault for field.
func (f *FaultyReader) AddRule(field string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	f.rules[field] = fault
}

// ClearRules removes every fault.
func (f *FaultyReader) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.rules)
}

// Lookups returns the number of postings lookups so far.
func (f *FaultyReader) Lookups() int64 { return f.lookups.Load() }

// Shards implements index.Reader.
func (f *FaultyReader) Shards() []index.Shard { return f.shards }

func (f *FaultyReader) rule(field string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[field]
	return r, ok
}

type faultyShard struct {
	index.Shard
	f *FaultyReader
}

func (s *faultyShard) Terms(field string) (iter.Seq2[string, uint64], error) {
	if r, ok := s.f.rule(field); ok && r.FailTerms {
		return nil, r.Err
	}
	return s.Shard.Terms(field)
}

func (s *faultyShard) Postings(field, value string) (*bitmap.Bitmap, error) {
	s.f.lookups.Add(1)
	if r, ok := s.f.rule(field); ok && r.FailPostings {
		return nil, r.Err
	}
	return s.Shard.Postings(field, value)
}
