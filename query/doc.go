// Package query parses the mini query language used for searches and facet
// class definitions, and compiles it into predicates evaluated per shard.
//
// # Syntax
//
//	wasser                      term in the default field
//	partner:bund                exact value of a keyword field
//	title:"die welt"            quoted value
//	a b, a AND b                conjunction
//	a OR b                      disjunction, binds weaker than AND
//	-a, NOT a                   negation
//	(a OR b) c, metaclass:(1 OR 3)
//
// Positive partner, provider and datatype clauses at the top level of a query
// are scope clauses. They are kept apart in Query.Scope and always applied as
// required conjuncts.
//
// A conjunction made only of negated clauses matches nothing.
package query
