package queryir

import (
	"fmt"

	"github.com/roach88/remoteq/internal/ir"
)

// Predicate represents a filter condition in the query AST.
//
// This is a sealed interface - only types in this package implement it.
// Dialect compilers rely on this for exhaustive type switches.
//
// Predicate types:
//   - Comparison: field <op> literal
//   - Conjunction: left AND right
//   - Disjunction: left OR right
//   - FieldComparison: field <op> field (representable, never compilable)
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Operator identifies the comparison performed by a Comparison.
type Operator string

// Comparison operators. The string values are the canonical tokens used in
// query definition files and diagnostics.
const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGe         Operator = "ge"
	OpLt         Operator = "lt"
	OpLe         Operator = "le"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
)

// Operators lists every supported operator in declaration order.
var Operators = []Operator{
	OpEq, OpNe, OpGt, OpGe, OpLt, OpLe,
	OpContains, OpStartsWith, OpEndsWith,
}

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// IsStringPredicate reports whether op is a string-matching operator
// (contains, startsWith, endsWith) rather than a relational one.
func (op Operator) IsStringPredicate() bool {
	return op == OpContains || op == OpStartsWith || op == OpEndsWith
}

// ParseOperator resolves an operator token case-insensitively.
// Accepts the canonical tokens plus the common aliases "gte"/"lte",
// "starts_with" and "ends_with".
func ParseOperator(s string) (Operator, error) {
	switch normalizeToken(s) {
	case "eq", "==", "=":
		return OpEq, nil
	case "ne", "!=":
		return OpNe, nil
	case "gt", ">":
		return OpGt, nil
	case "ge", "gte", ">=":
		return OpGe, nil
	case "lt", "<":
		return OpLt, nil
	case "le", "lte", "<=":
		return OpLe, nil
	case "contains":
		return OpContains, nil
	case "startswith", "starts_with":
		return OpStartsWith, nil
	case "endswith", "ends_with":
		return OpEndsWith, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

// Comparison represents a field-versus-literal predicate.
//
// Semantics:
//
//	<field> <op> <value>
//
// Example:
//
//	Comparison{Field: Field("name"), Op: OpContains, Value: ir.String("push")}
type Comparison struct {
	Field FieldRef
	Op    Operator
	Value ir.Value
}

func (Comparison) predicateNode() {}

// Conjunction represents Left AND Right.
type Conjunction struct {
	Left  Predicate
	Right Predicate
}

func (Conjunction) predicateNode() {}

// Disjunction represents Left OR Right.
//
// Not every dialect can express disjunction. The REST dialect renders both
// sides as independent parameters; see dialect.RESTCompiler.
type Disjunction struct {
	Left  Predicate
	Right Predicate
}

func (Disjunction) predicateNode() {}

// FieldComparison compares two fields with each other.
//
// Neither dialect can express this shape. It exists in the AST so that the
// failure is explicit: compilers reject it with an error instead of
// silently dropping the filter.
type FieldComparison struct {
	Left  FieldRef
	Op    Operator
	Right FieldRef
}

func (FieldComparison) predicateNode() {}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection resolves "asc"/"ascending"/"desc"/"descending".
// An empty string means ascending.
func ParseDirection(s string) (Direction, error) {
	switch normalizeToken(s) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// SortKey is one ordering key. Keys are carried in an ordered slice;
// the first key is the primary ordering.
//
// Explicit records whether the caller named the direction. The OData
// dialect only suffixes "asc" for explicit ascending keys.
type SortKey struct {
	Field     FieldRef
	Direction Direction
	Explicit  bool
}

// PageWindow is a skip/take window. Take == 0 means unbounded.
type PageWindow struct {
	Skip int
	Take int
}

// Unbounded reports whether the window has no take limit.
func (w PageWindow) Unbounded() bool {
	return w.Take <= 0
}
