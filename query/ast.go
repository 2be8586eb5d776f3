package query

import (
	"strings"
)

// Node is an element of a parsed query.
type Node interface {
	String() string
	node()
}

// Term matches a value of a field. An empty field means the default field.
type Term struct {
	Field  string
	Value  string
	Quoted bool
}

// Not negates its clause.
type Not struct {
	X Node
}

// And requires all clauses.
type And struct {
	Clauses []Node
}

// Or requires at least one clause.
type Or struct {
	Clauses []Node
}

func (*Term) node() {}
func (*Not) node()  {}
func (*And) node()  {}
func (*Or) node()   {}

func (t *Term) String() string {
	v := t.Value
	if t.Quoted || strings.ContainsAny(v, " \t()\"") {
		v = `"` + strings.ReplaceAll(v, `"`, ``) + `"`
	}
	if t.Field == "" {
		return v
	}
	return t.Field + ":" + v
}

func (n *Not) String() string { return "-" + group(n.X) }

func (a *And) String() string { return join(a.Clauses, " AND ") }

func (o *Or) String() string { return join(o.Clauses, " OR ") }

func join(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = group(n)
	}
	return strings.Join(parts, sep)
}

func group(n Node) string {
	switch n.(type) {
	case *And, *Or:
		return "(" + n.String() + ")"
	default:
		return n.String()
	}
}

// Scope fields are hoisted out of a query and always required.
var scopeFields = map[string]bool{
	"partner":  true,
	"provider": true,
	"datatype": true,
}

// IsScopeField reports whether field is one of partner, provider or datatype.
func IsScopeField(field string) bool { return scopeFields[field] }
