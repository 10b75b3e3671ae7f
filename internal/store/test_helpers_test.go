package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/remoteq/internal/remote"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestRecord creates a successful fetch record for endpoint.
func createTestRecord(endpoint string, items int) remote.FetchRecord {
	return remote.FetchRecord{
		Endpoint:  endpoint,
		Dialect:   "rest",
		URL:       "https://api.example.com/" + endpoint + "?pageIndex=0&pageSize=10",
		Items:     items,
		StartedAt: testStart,
		Duration:  15 * time.Millisecond,
	}
}

// createFailedRecord creates a failed fetch record for endpoint.
func createFailedRecord(endpoint string) remote.FetchRecord {
	rec := createTestRecord(endpoint, 0)
	rec.ErrorCode = string(remote.ErrCodeTransportFailed)
	rec.Error = "TRANSPORT_FAILED: unexpected status 502"
	return rec
}
