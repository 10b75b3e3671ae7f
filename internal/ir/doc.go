// Package ir provides the literal value model shared by the query AST and
// the dialect compilers.
//
// This package contains value types only. It imports nothing internal, so
// queryir, dialect and remote can all depend on it without cycles.
//
// Key design constraints:
//   - Value is sealed; compilers switch exhaustively over its variants
//   - Text is the single canonical bare rendering; dialects add quoting
//   - Strings are NFC normalized before rendering
//   - Date-times always render as ISO-8601 in UTC
package ir
