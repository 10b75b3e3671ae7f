package queryir

import (
	"fmt"

	"github.com/roach88/remoteq/internal/ir"
)

// ValidationResult contains the portability analysis of a query.
//
// The portable fragment is the subset of the AST that renders with the same
// meaning in every dialect. Queries outside it may still compile, but some
// dialect will approximate them.
type ValidationResult struct {
	// IsPortable is true when there are neither warnings nor errors.
	IsPortable bool

	// Warnings lists constructs some dialect can only approximate.
	// The query still compiles.
	Warnings []string

	// Errors lists constructs no dialect can render. Compiling such a
	// query fails.
	Errors []string
}

// Valid reports whether the query is compilable (no errors).
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks a query against the portable fragment rules.
//
// Errors (untranslatable):
//  1. Empty field references
//  2. Unknown operators or sort directions
//  3. Field-to-field comparisons
//  4. Null operands for string predicates
//  5. Negative skip or take
//
// Warnings (approximated by the REST dialect):
//  1. Disjunctions, rendered as independent parameters
//  2. Skip not aligned to take, truncated by page-index division
//  3. Repeated sort keys
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{
		warnings: []string{},
		errors:   []string{},
	}
	v.validatePredicate(q.Filter)
	v.validateSort(q.Sort)
	if q.Page != nil {
		v.validatePage(*q.Page)
	}

	return ValidationResult{
		IsPortable: len(v.warnings) == 0 && len(v.errors) == 0,
		Warnings:   v.warnings,
		Errors:     v.errors,
	}
}

// validator accumulates findings during traversal.
type validator struct {
	warnings []string
	errors   []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil filter is valid (no filter)
	}

	switch pred := p.(type) {
	case Comparison:
		v.validateComparison(pred)
	case Conjunction:
		v.validateChildren("Conjunction", pred.Left, pred.Right)
	case Disjunction:
		v.addWarning("Disjunction over %s - REST dialect renders both sides as independent (AND-ed) parameters",
			Describe(pred))
		v.validateChildren("Disjunction", pred.Left, pred.Right)
	case FieldComparison:
		v.addError("Field comparison %s %s %s - dialects can only compare a field with a literal",
			pred.Left, pred.Op, pred.Right)
	default:
		v.addError("Unknown predicate type: %T", p)
	}
}

func (v *validator) validateChildren(kind string, left, right Predicate) {
	if left == nil || right == nil {
		v.addError("%s with a missing operand", kind)
	}
	v.validatePredicate(left)
	v.validatePredicate(right)
}

func (v *validator) validateComparison(c Comparison) {
	if c.Field.IsEmpty() {
		v.addError("Comparison with empty field reference")
	}
	if !c.Op.Valid() {
		v.addError("Field '%s' uses unknown operator %q", c.Field, c.Op)
		return
	}
	if c.Op.IsStringPredicate() && ir.IsNull(c.Value) {
		v.addError("Field '%s' %s null - string predicates need a non-null literal", c.Field, c.Op)
	}
}

func (v *validator) validateSort(keys []SortKey) {
	seen := make(map[FieldRef]bool, len(keys))
	for i, key := range keys {
		if key.Field.IsEmpty() {
			v.addError("Sort key %d has empty field reference", i)
			continue
		}
		if key.Direction != Ascending && key.Direction != Descending {
			v.addError("Sort key '%s' has unknown direction %q", key.Field, key.Direction)
		}
		if seen[key.Field] {
			v.addWarning("Sort key '%s' repeated - later keys cannot change the order", key.Field)
		}
		seen[key.Field] = true
	}
}

func (v *validator) validatePage(w PageWindow) {
	if w.Skip < 0 {
		v.addError("Negative skip %d", w.Skip)
	}
	if w.Take < 0 {
		v.addError("Negative take %d", w.Take)
	}
	if w.Take > 0 && w.Skip > 0 && w.Skip%w.Take != 0 {
		v.addWarning("Skip %d is not a multiple of take %d - REST page index truncates to %d",
			w.Skip, w.Take, w.Skip/w.Take)
	}
}

// Describe renders a compact, dialect-neutral form of a predicate for
// diagnostics and error messages.
func Describe(p Predicate) string {
	switch pred := p.(type) {
	case nil:
		return "<nil>"
	case Comparison:
		return fmt.Sprintf("%s %s %s", pred.Field, pred.Op, ir.Text(pred.Value))
	case Conjunction:
		return fmt.Sprintf("(%s AND %s)", Describe(pred.Left), Describe(pred.Right))
	case Disjunction:
		return fmt.Sprintf("(%s OR %s)", Describe(pred.Left), Describe(pred.Right))
	case FieldComparison:
		return fmt.Sprintf("%s %s %s", pred.Left, pred.Op, pred.Right)
	default:
		return fmt.Sprintf("%T", p)
	}
}
