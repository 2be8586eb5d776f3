package facet

import (
	"context"
	"fmt"
	"iter"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/index"
	"github.com/informationgrid/ingrid-search-utils/internal/queue"
	"github.com/informationgrid/ingrid-search-utils/model"
)

// ctxCheckInterval is the number of merged values between context checks.
const ctxCheckInterval = 1024

// HighFrequencyTerms returns the k values of field with the highest document
// frequency summed over all shards, most frequent first. Equal frequencies
// are ordered by value.
func (p *Producer) HighFrequencyTerms(ctx context.Context, field string, k int) ([]model.TermFrequency, error) {
	return p.topTerms(ctx, field, k, func(_ int, _ index.Shard, _ string, df uint64) (uint64, error) {
		return df, nil
	})
}

// PopulationTerms is like HighFrequencyTerms but counts only documents in
// population. Values absent from the population are not returned.
func (p *Producer) PopulationTerms(ctx context.Context, field string, population bitmap.Set, k int) ([]model.TermFrequency, error) {
	return p.topTerms(ctx, field, k, func(i int, s index.Shard, value string, _ uint64) (uint64, error) {
		if i >= len(population) || population[i].IsEmpty() {
			return 0, nil
		}
		postings, err := s.Postings(field, value)
		if err != nil {
			return 0, err
		}
		return postings.AndCardinality(population[i]), nil
	})
}

// weightFunc returns the frequency value contributes in shard i.
type weightFunc func(i int, s index.Shard, value string, df uint64) (uint64, error)

type termCursor struct {
	shard int
	next  func() (string, uint64, bool)
	stop  func()
	value string
	df    uint64
	ok    bool
}

func (c *termCursor) advance() {
	c.value, c.df, c.ok = c.next()
}

// topTerms merges the ascending term streams of all shards by value, so every
// value's total is known when it is offered to the bounded queue.
func (p *Producer) topTerms(ctx context.Context, field string, k int, weight weightFunc) ([]model.TermFrequency, error) {
	shards := p.reader.Shards()
	cursors := make([]*termCursor, 0, len(shards))
	defer func() {
		for _, c := range cursors {
			c.stop()
		}
	}()

	for i, s := range shards {
		seq, err := s.Terms(field)
		if err != nil {
			return nil, fmt.Errorf("shard %d: terms of %s: %w", i, field, err)
		}
		next, stop := iter.Pull2(seq)
		c := &termCursor{shard: i, next: next, stop: stop}
		cursors = append(cursors, c)
		c.advance()
	}

	top := queue.NewTopK(k)
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		value, found := "", false
		for _, c := range cursors {
			if c.ok && (!found || c.value < value) {
				value, found = c.value, true
			}
		}
		if !found {
			break
		}

		var total uint64
		for _, c := range cursors {
			if !c.ok || c.value != value {
				continue
			}
			w, err := weight(c.shard, shards[c.shard], value, c.df)
			if err != nil {
				return nil, fmt.Errorf("shard %d: %s:%s: %w", c.shard, field, value, err)
			}
			total += w
			c.advance()
		}

		if value != "" && total > 0 {
			top.Offer(model.TermFrequency{Field: field, Value: value, DocFreq: total})
		}
	}
	return top.Drain(), nil
}
