// Package store provides a SQLite-backed log of remote fetches.
//
// Every enumeration of a remote query (successful or not) can be recorded
// as one row: the endpoint, dialect, full request URL, item count, the
// server-reported total and, for failures, the error code. The log backs
// the "trace" command and is useful for checking which query strings a
// program actually sent.
//
// # Ordering
//
// Rows carry a monotonically increasing seq assigned at insert time. All
// reads order by seq ASC, id ASC COLLATE BINARY, so listings are stable
// regardless of wall-clock skew between recorded start times.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: SQLite has a single writer
package store
