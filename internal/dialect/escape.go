package dialect

import "strings"

const upperhex = "0123456789ABCDEF"

// Escape percent-encodes a query-string key or value.
//
// Unreserved characters (RFC 3986 §2.3) and the delimiters both dialects
// use inside values (comma, apostrophe, parentheses, ':', '$' and '/') are
// left as-is so "sort=name_desc,createddate_asc" and
// "$filter=contains(name,%20'push')" stay readable. Everything else,
// including '&', '=', '+', '#', '%', ';' and space, is encoded. Space
// becomes %20, never '+'.
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func shouldEscape(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '.', '_', '~':
		return false
	case ',', '\'', '(', ')', ':', '$', '/':
		return false
	}
	return true
}
