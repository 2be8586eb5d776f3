package query

import (
	"context"
	"fmt"
	"runtime"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/index"
	"golang.org/x/sync/errgroup"
)

// Options configures a Compiler.
type Options struct {
	// DefaultField is searched by terms without a field.
	DefaultField string
	// TextFields are analyzed with index.Analyze. All other fields match verbatim.
	TextFields []string
	// Parallelism bounds the shards evaluated concurrently by Execute.
	Parallelism int
}

// DefaultOptions matches the default layout of the memory index.
var DefaultOptions = Options{
	DefaultField: "content",
	TextFields:   []string{"content", "title"},
	Parallelism:  runtime.GOMAXPROCS(0),
}

// Compiler turns query text into predicates and runs them on an index.
// It is safe for concurrent use.
type Compiler struct {
	opts Options
	text map[string]bool
}

// NewCompiler creates a Compiler.
func NewCompiler(optFns ...func(o *Options)) *Compiler {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}

	c := &Compiler{opts: opts, text: make(map[string]bool, len(opts.TextFields))}
	for _, f := range opts.TextFields {
		c.text[f] = true
	}
	return c
}

// Compile parses fragment and compiles it. Scope clauses become required
// conjuncts.
func (c *Compiler) Compile(fragment string) (Predicate, error) {
	q, err := Parse(fragment)
	if err != nil {
		return nil, err
	}
	return c.CompileQuery(q), nil
}

// CompileQuery compiles a parsed query. Scope clauses join the top-level
// conjunction, so "-a partner:b" matches partner b documents without a.
func (c *Compiler) CompileQuery(q *Query) Predicate {
	bp := &boolPredicate{}
	for _, t := range q.Scope {
		bp.must = append(bp.must, c.term(t))
	}
	switch root := q.Root.(type) {
	case nil:
	case *And:
		c.addClauses(bp, root.Clauses)
	case *Not:
		c.addClauses(bp, []Node{root})
	default:
		bp.must = append(bp.must, c.compile(root))
	}
	if len(bp.must) == 0 && len(bp.mustNot) == 0 {
		return MatchNone()
	}
	if len(bp.must) == 1 && len(bp.mustNot) == 0 {
		return bp.must[0]
	}
	return bp
}

func (c *Compiler) addClauses(bp *boolPredicate, clauses []Node) {
	for _, cl := range clauses {
		if neg, ok := cl.(*Not); ok {
			bp.mustNot = append(bp.mustNot, c.compile(neg.X))
			continue
		}
		bp.must = append(bp.must, c.compile(cl))
	}
}

// Term returns a predicate for value in field, analyzing text fields.
func (c *Compiler) Term(field, value string) Predicate {
	return c.term(&Term{Field: field, Value: value})
}

func (c *Compiler) term(t *Term) Predicate {
	field := t.Field
	if field == "" {
		field = c.opts.DefaultField
	}
	if c.text[field] {
		return &termPredicate{field: field, tokens: index.Analyze(t.Value)}
	}
	return &termPredicate{field: field, tokens: []string{t.Value}}
}

func (c *Compiler) compile(n Node) Predicate {
	switch n := n.(type) {
	case *Term:
		return c.term(n)
	case *Not:
		// a lone negation is a conjunction without positive clauses
		return &boolPredicate{mustNot: []Predicate{c.compile(n.X)}}
	case *And:
		bp := &boolPredicate{}
		c.addClauses(bp, n.Clauses)
		return bp
	case *Or:
		bp := &boolPredicate{}
		for _, cl := range n.Clauses {
			if neg, ok := cl.(*Not); ok {
				bp.mustNot = append(bp.mustNot, c.compile(neg.X))
				continue
			}
			bp.should = append(bp.should, c.compile(cl))
		}
		return bp
	default:
		panic(fmt.Sprintf("query: unknown node %T", n))
	}
}

// Execute evaluates pred on every shard of r. Shards run concurrently; the
// result has one bitmap per shard in shard order.
func (c *Compiler) Execute(ctx context.Context, pred Predicate, r index.Reader) (bitmap.Set, error) {
	shards := r.Shards()
	out := make(bitmap.Set, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Parallelism)
	for i, s := range shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bm, err := pred.Eval(s)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			out[i] = bm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
