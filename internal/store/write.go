package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/remoteq/internal/remote"
)

// timeLayout is the storage format for started_at.
const timeLayout = time.RFC3339Nano

// RecordFetch appends one fetch record. It implements remote.Recorder.
//
// The row's seq is allocated inside the INSERT, so concurrent callers on
// the single connection always get distinct, increasing values.
func (s *Store) RecordFetch(ctx context.Context, rec remote.FetchRecord) error {
	var total sql.NullInt64
	if rec.HasTotal {
		total = sql.NullInt64{Int64: rec.Total, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetches
		(id, seq, endpoint, dialect, url, items, total, error_code, error, started_at, duration_ns)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM fetches), ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.newID(),
		rec.Endpoint,
		rec.Dialect,
		rec.URL,
		rec.Items,
		total,
		rec.ErrorCode,
		rec.Error,
		rec.StartedAt.UTC().Format(timeLayout),
		int64(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("record fetch: %w", err)
	}
	return nil
}

var _ remote.Recorder = (*Store)(nil)
