package queryir

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldRef is a case-normalized dotted path to a field, either local to the
// collection or reached through a navigation ("exercise.name").
//
// The zero value is the empty reference, which is never valid; Validate and
// both compilers reject it.
type FieldRef string

// Field builds a FieldRef from one or more path segments.
//
// Each segment is trimmed and lower-cased; segments that themselves contain
// dots are kept as sub-paths. Empty segments are dropped, so
// Field("Exercise", "", "Name") and Field("exercise.name") are equal.
func Field(segments ...string) FieldRef {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		for _, p := range strings.Split(seg, ".") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			parts = append(parts, lower(p))
		}
	}
	return FieldRef(strings.Join(parts, "."))
}

// String returns the dotted path.
func (f FieldRef) String() string {
	return string(f)
}

// IsEmpty reports whether the reference is empty (invalid).
func (f FieldRef) IsEmpty() bool {
	return f == ""
}

// Segments splits the reference into its path segments.
func (f FieldRef) Segments() []string {
	if f == "" {
		return nil
	}
	return strings.Split(string(f), ".")
}

// Join appends a navigation segment, yielding a deeper reference.
func (f FieldRef) Join(segment string) FieldRef {
	return Field(string(f), segment)
}

// lower uses Unicode-aware lower-casing; a fresh Caser per call because
// cases.Caser is not safe for concurrent use.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// normalizeToken lower-cases and trims an operator or direction token.
func normalizeToken(s string) string {
	return lower(strings.TrimSpace(s))
}
