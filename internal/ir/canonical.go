package ir

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// TimeLayout is the ISO-8601 layout used for every date-time literal.
// Times are converted to UTC first so equal instants render identically.
const TimeLayout = time.RFC3339Nano

// Text returns the canonical bare textual form of a literal.
//
// Rules:
//  1. Strings are NFC normalized and otherwise emitted verbatim (no quotes)
//  2. Integers are base-10
//  3. Floats use the shortest representation without an exponent
//  4. Booleans are "true" / "false"
//  5. Date-times are ISO-8601 in UTC
//  6. Null (or a nil Value) is "null"
//
// Dialects that need quoting build on top of this form.
func Text(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return NormalizeString(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Time:
		return time.Time(val).UTC().Format(TimeLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NormalizeString applies Unicode NFC normalization.
// Composed and decomposed forms of the same text must produce the same
// query string, otherwise identical ASTs could render differently.
func NormalizeString(s string) string {
	return norm.NFC.String(s)
}
