package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/remoteq/internal/ir"
	"github.com/roach88/remoteq/internal/queryir"
)

// DefaultPageSize is the REST page size used when a skip is set without a
// take.
const DefaultPageSize = 20

// REST parameter names.
const (
	RESTPageIndex = "pageIndex"
	RESTPageSize  = "pageSize"
	RESTSearch    = "search"
	RESTSort      = "sort"
)

// restSuffix maps relational and string operators to their key suffix.
// OpEq has no suffix and OpContains is routed into the search parameter.
var restSuffix = map[queryir.Operator]string{
	queryir.OpNe:         "_ne",
	queryir.OpGt:         "_gt",
	queryir.OpGe:         "_gte",
	queryir.OpLt:         "_lt",
	queryir.OpLe:         "_lte",
	queryir.OpStartsWith: "_startswith",
	queryir.OpEndsWith:   "_endswith",
}

// RESTCompiler compiles a query AST into the REST-conventional dialect.
//
// Wire contract:
//
//	field=value                  equality
//	field_ne|_gt|_gte|_lt|_lte   relational operators
//	field_startswith|_endswith   string prefix/suffix
//	search=a b                   every contains literal, space-joined
//	sort=f1_desc,f2_asc          ordering
//	pageIndex=N&pageSize=M       paging (pageIndex = skip / take)
//
// The dialect has no OR. A Disjunction renders both sides as independent
// parameters, which servers treat as AND; the compiler reproduces this and
// adds a warning to the Result rather than silently changing it.
type RESTCompiler struct{}

// Dialect returns "rest".
func (RESTCompiler) Dialect() string { return REST }

// Compile renders q as REST query parameters.
//
// Parameter order: filter parameters in call order (the single search
// parameter sits where the first contains appeared), then sort, then
// pageIndex and pageSize.
func (c RESTCompiler) Compile(q queryir.Query) (*Result, error) {
	w := &restWriter{result: &Result{Dialect: REST}, searchAt: -1}

	if err := w.predicate(q.Filter); err != nil {
		return nil, err
	}
	if w.searchAt >= 0 {
		w.result.Params[w.searchAt].Value = strings.Join(w.search, " ")
	}

	if err := w.sort(q.Sort); err != nil {
		return nil, err
	}

	if q.Page != nil {
		if err := w.page(*q.Page); err != nil {
			return nil, err
		}
	}

	return w.result, nil
}

// restWriter accumulates parameters during one compilation.
type restWriter struct {
	result   *Result
	search   []string
	searchAt int // index of the search parameter, -1 until first contains
}

func (w *restWriter) warn(format string, args ...any) {
	w.result.Warnings = append(w.result.Warnings, fmt.Sprintf(format, args...))
}

func (w *restWriter) predicate(p queryir.Predicate) error {
	if p == nil {
		return nil
	}

	switch pred := p.(type) {
	case queryir.Comparison:
		return w.comparison(pred)
	case queryir.Conjunction:
		return w.operands(pred.Left, pred.Right)
	case queryir.Disjunction:
		w.warn("disjunction %s rendered as independent parameters (server applies AND)",
			queryir.Describe(pred))
		return w.operands(pred.Left, pred.Right)
	case queryir.FieldComparison:
		return &UnsupportedShapeError{
			Dialect: REST,
			Node:    queryir.Describe(pred),
			Reason:  "field-to-field comparison has no parameter form",
		}
	default:
		return &UnsupportedShapeError{
			Dialect: REST,
			Node:    fmt.Sprintf("%T", p),
			Reason:  "unknown predicate type",
		}
	}
}

func (w *restWriter) operands(left, right queryir.Predicate) error {
	if left == nil || right == nil {
		return &UnsupportedShapeError{
			Dialect: REST,
			Reason:  "combinator with a missing operand",
		}
	}
	if err := w.predicate(left); err != nil {
		return err
	}
	return w.predicate(right)
}

func (w *restWriter) comparison(c queryir.Comparison) error {
	if c.Field.IsEmpty() {
		return &InvalidFieldError{Dialect: REST, Context: "filter"}
	}

	value := ir.Text(c.Value)

	switch c.Op {
	case queryir.OpEq:
		w.result.add(c.Field.String(), value)
		return nil
	case queryir.OpContains:
		if ir.IsNull(c.Value) {
			return &UnsupportedShapeError{
				Dialect: REST,
				Node:    queryir.Describe(c),
				Reason:  "contains needs a non-null literal",
			}
		}
		if w.searchAt < 0 {
			w.searchAt = len(w.result.Params)
			w.result.add(RESTSearch, "")
		}
		w.search = append(w.search, value)
		return nil
	}

	suffix, ok := restSuffix[c.Op]
	if !ok {
		return &UnsupportedShapeError{
			Dialect: REST,
			Node:    queryir.Describe(c),
			Reason:  fmt.Sprintf("operator %q has no parameter form", c.Op),
		}
	}
	w.result.add(c.Field.String()+suffix, value)
	return nil
}

func (w *restWriter) sort(keys []queryir.SortKey) error {
	if len(keys) == 0 {
		return nil
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if key.Field.IsEmpty() {
			return &InvalidFieldError{Dialect: REST, Context: "sort"}
		}
		switch key.Direction {
		case queryir.Ascending, queryir.Descending:
		default:
			return &UnsupportedShapeError{
				Dialect: REST,
				Node:    key.Field.String(),
				Reason:  fmt.Sprintf("unknown sort direction %q", key.Direction),
			}
		}
		parts = append(parts, key.Field.String()+"_"+string(key.Direction))
	}
	w.result.add(RESTSort, strings.Join(parts, ","))
	return nil
}

// page maps skip/take onto page index and size. A window with neither a
// skip nor a take emits nothing.
func (w *restWriter) page(pw queryir.PageWindow) error {
	if pw.Skip < 0 || pw.Take < 0 {
		return &UnsupportedShapeError{
			Dialect: REST,
			Node:    fmt.Sprintf("skip=%d take=%d", pw.Skip, pw.Take),
			Reason:  "negative paging values",
		}
	}

	size := pw.Take
	if pw.Unbounded() {
		if pw.Skip == 0 {
			return nil
		}
		size = DefaultPageSize
	}

	if pw.Skip%size != 0 {
		w.warn("skip %d is not a multiple of page size %d; page index truncates to %d",
			pw.Skip, size, pw.Skip/size)
	}

	w.result.add(RESTPageIndex, strconv.Itoa(pw.Skip/size))
	w.result.add(RESTPageSize, strconv.Itoa(size))
	return nil
}
