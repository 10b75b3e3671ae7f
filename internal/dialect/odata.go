package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/remoteq/internal/ir"
	"github.com/roach88/remoteq/internal/queryir"
)

// OData system query option names.
const (
	ODataFilter  = "$filter"
	ODataOrderBy = "$orderby"
	ODataSkip    = "$skip"
	ODataTop     = "$top"
)

// odataOperator maps relational operators to OData tokens.
var odataOperator = map[queryir.Operator]string{
	queryir.OpEq: "eq",
	queryir.OpNe: "ne",
	queryir.OpGt: "gt",
	queryir.OpGe: "ge",
	queryir.OpLt: "lt",
	queryir.OpLe: "le",
}

// odataFunction maps string predicates to OData function names.
var odataFunction = map[queryir.Operator]string{
	queryir.OpContains:   "contains",
	queryir.OpStartsWith: "startswith",
	queryir.OpEndsWith:   "endswith",
}

// ODataCompiler compiles a query AST into the OData-like dialect.
//
// Wire contract:
//
//	$filter=name eq 'x' and (a gt 1 or contains(b, 'y'))
//	$orderby=name desc,createddate asc
//	$skip=20&$top=10
//
// The whole filter expression is one parameter, escaped as a unit.
// Descending keys are always suffixed "desc"; ascending keys are suffixed
// "asc" only when the caller named the direction.
type ODataCompiler struct{}

// Dialect returns "odata".
func (ODataCompiler) Dialect() string { return OData }

// Compile renders q as OData system query options in the order
// $filter, $orderby, $skip, $top.
func (c ODataCompiler) Compile(q queryir.Query) (*Result, error) {
	result := &Result{Dialect: OData}

	if q.Filter != nil {
		expr, err := odataExpr(q.Filter)
		if err != nil {
			return nil, err
		}
		result.add(ODataFilter, expr)
	}

	if len(q.Sort) > 0 {
		orderBy, err := odataOrderBy(q.Sort)
		if err != nil {
			return nil, err
		}
		result.add(ODataOrderBy, orderBy)
	}

	if q.Page != nil {
		pw := *q.Page
		if pw.Skip < 0 || pw.Take < 0 {
			return nil, &UnsupportedShapeError{
				Dialect: OData,
				Node:    fmt.Sprintf("skip=%d take=%d", pw.Skip, pw.Take),
				Reason:  "negative paging values",
			}
		}
		if pw.Skip > 0 {
			result.add(ODataSkip, strconv.Itoa(pw.Skip))
		}
		if !pw.Unbounded() {
			result.add(ODataTop, strconv.Itoa(pw.Take))
		}
	}

	return result, nil
}

// odataExpr renders a predicate tree. Disjunctions are parenthesized so
// they keep their grouping when nested under "and".
func odataExpr(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Comparison:
		return odataComparison(pred)
	case queryir.Conjunction:
		left, right, err := odataOperands(pred.Left, pred.Right)
		if err != nil {
			return "", err
		}
		return left + " and " + right, nil
	case queryir.Disjunction:
		left, right, err := odataOperands(pred.Left, pred.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " or " + right + ")", nil
	case queryir.FieldComparison:
		return "", &UnsupportedShapeError{
			Dialect: OData,
			Node:    queryir.Describe(pred),
			Reason:  "field-to-field comparison is not supported",
		}
	case nil:
		return "", &UnsupportedShapeError{
			Dialect: OData,
			Reason:  "combinator with a missing operand",
		}
	default:
		return "", &UnsupportedShapeError{
			Dialect: OData,
			Node:    fmt.Sprintf("%T", p),
			Reason:  "unknown predicate type",
		}
	}
}

func odataOperands(l, r queryir.Predicate) (string, string, error) {
	left, err := odataExpr(l)
	if err != nil {
		return "", "", err
	}
	right, err := odataExpr(r)
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

func odataComparison(c queryir.Comparison) (string, error) {
	if c.Field.IsEmpty() {
		return "", &InvalidFieldError{Dialect: OData, Context: "filter"}
	}

	if fn, ok := odataFunction[c.Op]; ok {
		if ir.IsNull(c.Value) {
			return "", &UnsupportedShapeError{
				Dialect: OData,
				Node:    queryir.Describe(c),
				Reason:  fn + " needs a non-null literal",
			}
		}
		return fmt.Sprintf("%s(%s, %s)", fn, c.Field, ODataLiteral(c.Value)), nil
	}

	tok, ok := odataOperator[c.Op]
	if !ok {
		return "", &UnsupportedShapeError{
			Dialect: OData,
			Node:    queryir.Describe(c),
			Reason:  fmt.Sprintf("operator %q has no OData token", c.Op),
		}
	}
	return fmt.Sprintf("%s %s %s", c.Field, tok, ODataLiteral(c.Value)), nil
}

func odataOrderBy(keys []queryir.SortKey) (string, error) {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if key.Field.IsEmpty() {
			return "", &InvalidFieldError{Dialect: OData, Context: "sort"}
		}
		switch {
		case key.Direction == queryir.Descending:
			parts = append(parts, key.Field.String()+" desc")
		case key.Direction == queryir.Ascending && key.Explicit:
			parts = append(parts, key.Field.String()+" asc")
		case key.Direction == queryir.Ascending:
			parts = append(parts, key.Field.String())
		default:
			return "", &UnsupportedShapeError{
				Dialect: OData,
				Node:    key.Field.String(),
				Reason:  fmt.Sprintf("unknown sort direction %q", key.Direction),
			}
		}
	}
	return strings.Join(parts, ","), nil
}

// ODataLiteral renders a literal in OData syntax: strings single-quoted
// with embedded quotes doubled, date-times as unquoted ISO-8601, and
// numbers, booleans and null bare.
func ODataLiteral(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return "'" + strings.ReplaceAll(ir.Text(val), "'", "''") + "'"
	default:
		return ir.Text(v)
	}
}
