// Package queryir provides the wire-format-independent query AST for remote
// collection queries.
//
// The AST is the boundary between callers building criteria and the dialect
// compilers that render them:
//
//	[builder calls] → [queryir.Query] → [REST dialect]
//	                                  → [OData dialect]
//
// The "tree" is built by direct constructor calls, never reflected out of
// function bodies. Each builder call returns a new Query with one more
// node, so render order always equals call order.
//
// SEALED INTERFACES:
//
// Predicate is sealed with a marker method. Only Comparison, Conjunction,
// Disjunction and FieldComparison implement it, which lets compilers use
// exhaustive type switches:
//
//	switch p := pred.(type) {
//	case queryir.Comparison:
//	case queryir.Conjunction:
//	case queryir.Disjunction:
//	case queryir.FieldComparison:
//	    // reject: untranslatable shape
//	}
//
// PORTABLE FRAGMENT:
//
// Validate reports which parts of a Query every dialect renders with the
// same meaning. Disjunction is outside the fragment: the REST dialect has
// no OR and renders both sides as independent parameters. FieldComparison
// is representable but compilable by no dialect.
//
// FIELD REFERENCES:
//
// FieldRef values are lower-cased dotted paths. Nested navigation collapses
// to one path ("exercise.name"); there is no structural join beyond that.
package queryir
