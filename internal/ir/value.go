package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Value is a sealed interface representing literal values in a query.
// Only Null, String, Int, Float, Bool and Time implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents a literal null.
type Null struct{}

func (Null) irValue() {}

// String represents a string literal.
type String string

func (String) irValue() {}

// Int represents an integer literal.
type Int int64

func (Int) irValue() {}

// Float represents a non-integral numeric literal.
// NaN and infinities are not valid literals; see FromAny.
type Float float64

func (Float) irValue() {}

// Bool represents a boolean literal.
type Bool bool

func (Bool) irValue() {}

// Time represents a date-time literal.
type Time time.Time

func (Time) irValue() {}

// NewString creates a String value.
func NewString(s string) String {
	return String(s)
}

// NewInt creates an Int value.
func NewInt(n int64) Int {
	return Int(n)
}

// NewBool creates a Bool value.
func NewBool(b bool) Bool {
	return Bool(b)
}

// NewTime creates a Time value.
func NewTime(t time.Time) Time {
	return Time(t)
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements json.Marshaler for Time using RFC 3339.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// FromAny converts a decoded Go value (from YAML, JSON or CUE) into a Value.
//
// Integral floats are narrowed to Int so that `10` from a JSON decoder and
// `10` from YAML render identically. Values that already implement Value
// are returned as-is.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return fromFloat(f)
	case time.Time:
		return Time(val), nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number is not a valid literal: %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f)), nil
	}
	return Float(f), nil
}

// IsNull reports whether v is the null literal (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// TypeName returns a short name for the literal's type, used in diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "string"
	case Int, Float:
		return "number"
	case Bool:
		return "boolean"
	case Time:
		return "datetime"
	default:
		return fmt.Sprintf("%T", v)
	}
}
