package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/remoteq/internal/remote"
)

// Fetch is one row of the fetch log.
type Fetch struct {
	ID  string
	Seq int64
	remote.FetchRecord
}

// Failed reports whether the fetch ended in an error.
func (f Fetch) Failed() bool {
	return f.ErrorCode != "" || f.Error != ""
}

// ListOptions narrows ListFetches.
type ListOptions struct {
	// Endpoint restricts rows to one endpoint path (exact match).
	Endpoint string

	// FailedOnly keeps only rows with an error.
	FailedOnly bool

	// Limit keeps the most recent N rows (0 = all).
	Limit int
}

const selectFetch = `
	SELECT id, seq, endpoint, dialect, url, items, total, error_code, error, started_at, duration_ns
	FROM fetches
`

// ListFetches returns logged fetches ordered by seq ASC, id ASC.
// With a Limit, the most recent rows are kept and still returned oldest
// first. Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListFetches(ctx context.Context, opts ListOptions) ([]Fetch, error) {
	var (
		where []string
		args  []any
	)
	if opts.Endpoint != "" {
		where = append(where, "endpoint = ?")
		args = append(args, opts.Endpoint)
	}
	if opts.FailedOnly {
		where = append(where, "(error_code != '' OR error != '')")
	}

	query := selectFetch
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if opts.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ?)`
		args = append(args, opts.Limit)
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetches: %w", err)
	}
	defer rows.Close()

	fetches := []Fetch{}
	for rows.Next() {
		f, err := scanFetch(rows)
		if err != nil {
			return nil, err
		}
		fetches = append(fetches, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetches: %w", err)
	}
	return fetches, nil
}

// GetFetch returns one fetch by ID. The boolean is false when no row has
// that ID.
func (s *Store) GetFetch(ctx context.Context, id string) (Fetch, bool, error) {
	row := s.db.QueryRowContext(ctx, selectFetch+" WHERE id = ?", id)
	f, err := scanFetch(row)
	if err == sql.ErrNoRows {
		return Fetch{}, false, nil
	}
	if err != nil {
		return Fetch{}, false, err
	}
	return f, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFetch(sc scanner) (Fetch, error) {
	var (
		f          Fetch
		total      sql.NullInt64
		startedAt  string
		durationNS int64
	)
	err := sc.Scan(
		&f.ID,
		&f.Seq,
		&f.Endpoint,
		&f.Dialect,
		&f.URL,
		&f.Items,
		&total,
		&f.ErrorCode,
		&f.Error,
		&startedAt,
		&durationNS,
	)
	if err == sql.ErrNoRows {
		return Fetch{}, err
	}
	if err != nil {
		return Fetch{}, fmt.Errorf("scan fetch: %w", err)
	}

	if total.Valid {
		f.Total = total.Int64
		f.HasTotal = true
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return Fetch{}, fmt.Errorf("scan fetch %s: started_at: %w", f.ID, err)
	}
	f.StartedAt = t
	f.Duration = time.Duration(durationNS)
	return f, nil
}
