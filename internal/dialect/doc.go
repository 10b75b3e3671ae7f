// Package dialect compiles a queryir.Query into wire-level query strings.
//
// Two dialects walk the same AST:
//
//	rest   pageIndex, pageSize, search, sort, {field}, {field}_ne|_gt|_gte|_lt|_lte|_startswith|_endswith
//	odata  $filter, $orderby, $skip, $top
//
// ForName maps a dialect tag to its Compiler and falls back to REST for
// empty or unknown tags. Compilers are stateless values; a finished Query
// can be compiled concurrently by any number of goroutines.
//
// Both compilers render nodes strictly in call order. Shapes a dialect
// cannot render (field-to-field comparison, empty field references,
// unknown operators) fail with UnsupportedShapeError or InvalidFieldError.
// Shapes the REST dialect can only approximate (OR, misaligned skip) are
// rendered and listed in Result.Warnings; Result.StrictErr turns them into
// an error for callers that cannot accept approximation.
//
// Include directives are not part of either dialect. They are rendered by
// package include and carried as a separate "include" parameter.
package dialect
