package queryir

import (
	"slices"

	"github.com/roach88/remoteq/internal/ir"
)

// Query aggregates the filter, ordering and paging state of one request.
//
// Query is an immutable value: every builder method returns a new Query and
// never touches the receiver's slices, so a finished Query can be shared
// across goroutines and compiled concurrently. Render order equals call
// order; compilers must not reorder predicates or sort keys.
type Query struct {
	Filter Predicate   // root predicate (nil = no filter)
	Sort   []SortKey   // ordering keys, primary first
	Page   *PageWindow // paging window (nil = not paged)
}

// New returns an empty Query.
func New() Query {
	return Query{}
}

// Where folds p into the root filter with AND. Successive calls produce a
// left-leaning conjunction chain, preserving call order.
func (q Query) Where(p Predicate) Query {
	if p == nil {
		return q
	}
	out := q.clone()
	if out.Filter == nil {
		out.Filter = p
	} else {
		out.Filter = Conjunction{Left: out.Filter, Right: p}
	}
	return out
}

// OrderBy replaces any existing ordering with a single primary key.
// Without dir the key is ascending and not explicit.
func (q Query) OrderBy(field FieldRef, dir ...Direction) Query {
	out := q.clone()
	out.Sort = []SortKey{sortKey(field, dir)}
	return out
}

// ThenBy appends a secondary ordering key.
func (q Query) ThenBy(field FieldRef, dir ...Direction) Query {
	out := q.clone()
	out.Sort = append(out.Sort, sortKey(field, dir))
	return out
}

// Skip sets the number of leading elements to skip.
func (q Query) Skip(n int) Query {
	out := q.clone()
	w := out.window()
	w.Skip = n
	out.Page = &w
	return out
}

// Take sets the maximum number of elements to return (0 = unbounded).
func (q Query) Take(n int) Query {
	out := q.clone()
	w := out.window()
	w.Take = n
	out.Page = &w
	return out
}

// IsEmpty reports whether the query carries no filter, sort or page state.
func (q Query) IsEmpty() bool {
	return q.Filter == nil && len(q.Sort) == 0 && q.Page == nil
}

// Predicates returns the leaf predicates of the filter in call order
// (depth-first, left to right).
func (q Query) Predicates() []Predicate {
	var out []Predicate
	Walk(q.Filter, func(p Predicate) {
		switch p.(type) {
		case Conjunction, Disjunction:
		default:
			out = append(out, p)
		}
	})
	return out
}

// clone copies the slices and the page window so the result can be
// modified without aliasing the receiver.
func (q Query) clone() Query {
	out := Query{
		Filter: q.Filter,
		Sort:   slices.Clone(q.Sort),
	}
	if q.Page != nil {
		w := *q.Page
		out.Page = &w
	}
	return out
}

func (q Query) window() PageWindow {
	if q.Page == nil {
		return PageWindow{}
	}
	return *q.Page
}

func sortKey(field FieldRef, dir []Direction) SortKey {
	if len(dir) == 0 {
		return SortKey{Field: field, Direction: Ascending}
	}
	return SortKey{Field: field, Direction: dir[0], Explicit: true}
}

// Walk visits p and its children depth-first, left before right.
func Walk(p Predicate, fn func(Predicate)) {
	if p == nil {
		return
	}
	fn(p)
	switch node := p.(type) {
	case Conjunction:
		Walk(node.Left, fn)
		Walk(node.Right, fn)
	case Disjunction:
		Walk(node.Left, fn)
		Walk(node.Right, fn)
	}
}

// Compare builds a Comparison node.
func Compare(field FieldRef, op Operator, value ir.Value) Comparison {
	if value == nil {
		value = ir.Null{}
	}
	return Comparison{Field: field, Op: op, Value: value}
}

// Eq builds field eq value.
func Eq(field FieldRef, value ir.Value) Comparison { return Compare(field, OpEq, value) }

// Ne builds field ne value.
func Ne(field FieldRef, value ir.Value) Comparison { return Compare(field, OpNe, value) }

// Gt builds field gt value.
func Gt(field FieldRef, value ir.Value) Comparison { return Compare(field, OpGt, value) }

// Ge builds field ge value.
func Ge(field FieldRef, value ir.Value) Comparison { return Compare(field, OpGe, value) }

// Lt builds field lt value.
func Lt(field FieldRef, value ir.Value) Comparison { return Compare(field, OpLt, value) }

// Le builds field le value.
func Le(field FieldRef, value ir.Value) Comparison { return Compare(field, OpLe, value) }

// Contains builds a substring match.
func Contains(field FieldRef, s string) Comparison {
	return Compare(field, OpContains, ir.String(s))
}

// StartsWith builds a prefix match.
func StartsWith(field FieldRef, s string) Comparison {
	return Compare(field, OpStartsWith, ir.String(s))
}

// EndsWith builds a suffix match.
func EndsWith(field FieldRef, s string) Comparison {
	return Compare(field, OpEndsWith, ir.String(s))
}

// And combines two predicates with AND. A nil side yields the other side.
func And(left, right Predicate) Predicate {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return Conjunction{Left: left, Right: right}
}

// Or combines two predicates with OR. A nil side yields the other side.
func Or(left, right Predicate) Predicate {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return Disjunction{Left: left, Right: right}
}

// CompareFields builds a field-to-field comparison. No dialect can render
// it; it exists so callers get an explicit compile error.
func CompareFields(left FieldRef, op Operator, right FieldRef) FieldComparison {
	return FieldComparison{Left: left, Op: op, Right: right}
}
