package dialect

import (
	"sort"
	"strings"

	"github.com/roach88/remoteq/internal/queryir"
)

// Dialect tags accepted by ForName.
const (
	REST  = "rest"
	OData = "odata"
)

// Compiler renders a query AST into one query-string dialect.
//
// Implementations are stateless and safe for concurrent use. Compiling the
// same Query twice yields an identical Result.
type Compiler interface {
	// Dialect returns the compiler's tag ("rest" or "odata").
	Dialect() string

	// Compile renders q. Untranslatable nodes return an error; nodes the
	// dialect can only approximate are rendered and reported in
	// Result.Warnings.
	Compile(q queryir.Query) (*Result, error)
}

// ForName returns the compiler for a dialect tag.
// Tags are matched case-insensitively after trimming; an empty or
// unrecognised tag selects the REST compiler.
func ForName(tag string) Compiler {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case OData:
		return ODataCompiler{}
	default:
		return RESTCompiler{}
	}
}

// Known reports whether tag names a dialect (rather than falling back).
func Known(tag string) bool {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case REST, OData:
		return true
	default:
		return false
	}
}

// Names returns all dialect tags (sorted).
func Names() []string {
	names := []string{REST, OData}
	sort.Strings(names)
	return names
}

// Param is one query-string parameter, unescaped.
type Param struct {
	Key   string
	Value string
}

// Result is a compiled query string.
//
// Params preserve render order; Encode never reorders them (unlike
// url.Values, which sorts keys).
type Result struct {
	Dialect  string
	Params   []Param
	Warnings []string
}

// Encode renders the parameters as key=value pairs joined by '&', with
// keys and values percent-encoded.
func (r *Result) Encode() string {
	if r == nil || len(r.Params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range r.Params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(Escape(p.Key))
		b.WriteByte('=')
		b.WriteString(Escape(p.Value))
	}
	return b.String()
}

// String returns the encoded query string.
func (r *Result) String() string {
	return r.Encode()
}

// Get returns the first value for key.
func (r *Result) Get(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, p := range r.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Keys returns parameter keys in render order (duplicates included).
func (r *Result) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.Params))
	for i, p := range r.Params {
		keys[i] = p.Key
	}
	return keys
}

// StrictErr converts warnings into an error. Callers that cannot accept an
// approximated query (for example REST rendering of OR) use it to reject
// the result.
func (r *Result) StrictErr() error {
	if r == nil || len(r.Warnings) == 0 {
		return nil
	}
	return &UnsupportedShapeError{
		Dialect: r.Dialect,
		Reason:  strings.Join(r.Warnings, "; "),
	}
}

func (r *Result) add(key, value string) {
	r.Params = append(r.Params, Param{Key: key, Value: value})
}
