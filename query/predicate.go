package query

import (
	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/index"
)

// Predicate selects the matching documents of one shard. The returned
// bitmap is owned by the caller and may be handed to bitmap.Put.
type Predicate interface {
	Eval(s index.Shard) (*bitmap.Bitmap, error)
	String() string
}

type termPredicate struct {
	field string
	// tokens are all required; a text value analyzes to several tokens
	tokens []string
}

func (p *termPredicate) Eval(s index.Shard) (*bitmap.Bitmap, error) {
	if len(p.tokens) == 0 {
		return bitmap.New(), nil
	}
	var out *bitmap.Bitmap
	for _, tok := range p.tokens {
		postings, err := s.Postings(p.field, tok)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = postings.Clone()
			continue
		}
		out.And(postings)
		if out.IsEmpty() {
			break
		}
	}
	return out, nil
}

func (p *termPredicate) String() string {
	if len(p.tokens) == 1 {
		return p.field + ":" + p.tokens[0]
	}
	s := p.field + ":\""
	for i, t := range p.tokens {
		if i > 0 {
			s += " "
		}
		s += t
	}
	return s + "\""
}

type boolPredicate struct {
	must    []Predicate
	should  []Predicate
	mustNot []Predicate
}

// Eval matches every must clause, at least one should clause when no must
// clause exists, and no mustNot clause. Without positive clauses nothing
// matches.
func (p *boolPredicate) Eval(s index.Shard) (*bitmap.Bitmap, error) {
	var out *bitmap.Bitmap
	for _, m := range p.must {
		bm, err := m.Eval(s)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = bm
		} else {
			out.And(bm)
			bitmap.Put(bm)
		}
		if out.IsEmpty() {
			return out, nil
		}
	}

	if out == nil {
		if len(p.should) == 0 {
			return bitmap.New(), nil
		}
		out = bitmap.Get()
		for _, sh := range p.should {
			bm, err := sh.Eval(s)
			if err != nil {
				bitmap.Put(out)
				return nil, err
			}
			out.Or(bm)
			bitmap.Put(bm)
		}
	}

	for _, n := range p.mustNot {
		if out.IsEmpty() {
			break
		}
		bm, err := n.Eval(s)
		if err != nil {
			bitmap.Put(out)
			return nil, err
		}
		out.AndNot(bm)
		bitmap.Put(bm)
	}
	return out, nil
}

func (p *boolPredicate) String() string {
	s := "("
	add := func(prefix string, ps []Predicate) {
		for _, x := range ps {
			if len(s) > 1 {
				s += " "
			}
			s += prefix + x.String()
		}
	}
	add("+", p.must)
	add("", p.should)
	add("-", p.mustNot)
	return s + ")"
}

type noneMatch struct{}

func (noneMatch) Eval(index.Shard) (*bitmap.Bitmap, error) { return bitmap.New(), nil }
func (noneMatch) String() string                             { return "(none)" }

// MatchNone matches no document.
func MatchNone() Predicate { return noneMatch{} }

// Conjunction requires every predicate. Nil predicates are skipped.
func Conjunction(preds ...Predicate) Predicate {
	must := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			must = append(must, p)
		}
	}
	if len(must) == 1 {
		return must[0]
	}
	return &boolPredicate{must: must}
}
