package dialect

import (
	"errors"
	"fmt"
)

// UnsupportedShapeError reports a filter, sort or page construct that a
// dialect cannot render without changing the query's meaning.
//
// Compilers never skip such nodes silently: a caller that believes a filter
// was applied when it was not would read the wrong data.
type UnsupportedShapeError struct {
	// Dialect is the tag of the compiler that rejected the node.
	Dialect string

	// Node is a dialect-neutral rendering of the offending node.
	Node string

	// Reason explains why the node cannot be rendered.
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedShapeError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s dialect: unsupported shape %q: %s", e.Dialect, e.Node, e.Reason)
	}
	return fmt.Sprintf("%s dialect: unsupported shape: %s", e.Dialect, e.Reason)
}

// InvalidFieldError reports an empty field reference.
type InvalidFieldError struct {
	Dialect string
	Context string // "filter" or "sort"
}

// Error implements the error interface.
func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s dialect: empty field reference in %s", e.Dialect, e.Context)
}

// IsUnsupportedShape returns true if err is (or wraps) an UnsupportedShapeError.
func IsUnsupportedShape(err error) bool {
	var se *UnsupportedShapeError
	return errors.As(err, &se)
}

// IsInvalidField returns true if err is (or wraps) an InvalidFieldError.
func IsInvalidField(err error) bool {
	var fe *InvalidFieldError
	return errors.As(err, &fe)
}
