package query

import (
	"strings"
)

// Query is a parsed search or fragment query.
type Query struct {
	// Raw is the text the query was parsed from.
	Raw string
	// Root is the non-scope part of the query. Nil when only scope clauses
	// were given.
	Root Node
	// Scope holds the hoisted partner, provider and datatype clauses.
	Scope []*Term
	// Facets is non-nil when the request asked for facet counts.
	Facets []FacetSpec
}

// WantsFacets reports whether facet counts were requested.
func (q *Query) WantsFacets() bool {
	return q != nil && q.Facets != nil
}

// ScopeValues returns the scope values given for field.
func (q *Query) ScopeValues(field string) []string {
	var out []string
	for _, t := range q.Scope {
		if t.Field == field {
			out = append(out, t.Value)
		}
	}
	return out
}

func (q *Query) String() string {
	parts := make([]string, 0, len(q.Scope)+1)
	if q.Root != nil {
		parts = append(parts, group(q.Root))
	}
	for _, t := range q.Scope {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " AND ")
}

// Parse parses text into a Query.
func Parse(text string) (*Query, error) {
	lx := &lexer{input: text}
	toks, err := lx.tokens()
	if err != nil {
		return nil, err
	}

	p := &parser{lx: lx, toks: toks}
	q := &Query{Raw: text}
	if p.peek().kind == tokEOF {
		return q, nil
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, lx.errorf(tok.pos, "unexpected input")
	}

	q.Root, q.Scope = hoistScope(root)
	return q, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Query {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

func hoistScope(root Node) (Node, []*Term) {
	switch n := root.(type) {
	case *Term:
		if IsScopeField(n.Field) {
			return nil, []*Term{n}
		}
	case *And:
		var scope []*Term
		rest := make([]Node, 0, len(n.Clauses))
		for _, c := range n.Clauses {
			if t, ok := c.(*Term); ok && IsScopeField(t.Field) {
				scope = append(scope, t)
				continue
			}
			rest = append(rest, c)
		}
		switch len(rest) {
		case 0:
			return nil, scope
		case 1:
			return rest[0], scope
		default:
			return &And{Clauses: rest}, scope
		}
	}
	return root, nil
}

type parser struct {
	lx     *lexer
	toks   []token
	pos    int
	fields []string
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	clauses := []Node{first}
	for p.peek().kind == tokOr {
		p.advance()
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, next)
	}
	if len(clauses) == 1 {
		return first, nil
	}
	return &Or{Clauses: clauses}, nil
}

func (p *parser) parseAnd() (Node, error) {
	var clauses []Node
	for {
		switch p.peek().kind {
		case tokEOF, tokRParen, tokOr:
			if len(clauses) == 0 {
				return nil, p.lx.errorf(p.peek().pos, "expected a clause")
			}
			if len(clauses) == 1 {
				return clauses[0], nil
			}
			return &And{Clauses: clauses}, nil
		case tokAnd:
			if len(clauses) == 0 {
				return nil, p.lx.errorf(p.peek().pos, "AND without left operand")
			}
			p.advance()
			if k := p.peek().kind; k == tokEOF || k == tokRParen || k == tokOr || k == tokAnd {
				return nil, p.lx.errorf(p.peek().pos, "AND without right operand")
			}
		}
		c, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
}

func (p *parser) parseUnary() (Node, error) {
	switch p.peek().kind {
	case tokMinus, tokNot:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.advance()
	switch tok.kind {
	case tokTerm:
		field := tok.field
		if field == "" && len(p.fields) > 0 {
			field = p.fields[len(p.fields)-1]
		}
		return &Term{Field: field, Value: tok.value, Quoted: tok.quoted}, nil
	case tokLParen:
		return p.parseGroup(tok)
	case tokFieldGroup:
		open := p.advance() // lexer guarantees "("
		p.fields = append(p.fields, tok.field)
		n, err := p.parseGroup(open)
		p.fields = p.fields[:len(p.fields)-1]
		return n, err
	case tokEOF:
		return nil, p.lx.errorf(tok.pos, "unexpected end of query")
	default:
		return nil, p.lx.errorf(tok.pos, "unexpected token")
	}
}

func (p *parser) parseGroup(open token) (Node, error) {
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokRParen {
		return nil, p.lx.errorf(open.pos, "unbalanced parenthesis")
	}
	p.advance()
	return n, nil
}
