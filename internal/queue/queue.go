// Package queue provides the bounded min-heap used to select the most
// frequent field values.
package queue

import (
	"github.com/informationgrid/ingrid-search-utils/model"
)

// TopK keeps the k largest term frequencies offered to it.
//
// Ordering is by DocFreq; among equal frequencies the lexicographically
// greater value ranks lower and is evicted first.
type TopK struct {
	k     int
	items []model.TermFrequency // value-based min-heap
}

// NewTopK creates a queue retaining at most k items.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{
		k:     k,
		items: make([]model.TermFrequency, 0, min(k, 1024)+1),
	}
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Cap returns k.
func (q *TopK) Cap() int { return q.k }

// Full reports whether k items are retained.
func (q *TopK) Full() bool { return len(q.items) >= q.k }

// Min returns the item that would be evicted next.
func (q *TopK) Min() (model.TermFrequency, bool) {
	if len(q.items) == 0 {
		return model.TermFrequency{}, false
	}
	return q.items[0], true
}

// Offer inserts tf and evicts the minimum when more than k items are held.
// It reports whether tf was retained.
func (q *TopK) Offer(tf model.TermFrequency) bool {
	if q.k == 0 {
		return false
	}
	if q.Full() && !lessTF(q.items[0], tf) {
		// tf would be evicted right away
		return false
	}
	q.items = append(q.items, tf)
	q.siftUp(len(q.items) - 1)
	if len(q.items) > q.k {
		q.pop()
	}
	return true
}

// Drain empties the queue and returns its items, most frequent first.
func (q *TopK) Drain() []model.TermFrequency {
	out := make([]model.TermFrequency, len(q.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = q.pop()
	}
	return out
}

func lessTF(a, b model.TermFrequency) bool {
	if a.DocFreq != b.DocFreq {
		return a.DocFreq < b.DocFreq
	}
	return a.Value > b.Value
}

func (q *TopK) pop() model.TermFrequency {
	n := len(q.items)
	root := q.items[0]
	last := q.items[n-1]
	q.items[n-1] = model.TermFrequency{}
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root
}

func (q *TopK) less(i, j int) bool {
	return lessTF(q.items[i], q.items[j])
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
