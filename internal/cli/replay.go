package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/remoteq/internal/remote"
	"github.com/roach88/remoteq/internal/store"
)

// ReplayResult compares a logged fetch with a fresh fetch of the same URL.
type ReplayResult struct {
	ID       string      `json:"id"`
	URL      string      `json:"url"`
	Dialect  string      `json:"dialect"`
	Original FetchDigest `json:"original"`
	Replayed FetchDigest `json:"replayed"`
	Match    bool        `json:"match"`
	Drift    []string    `json:"drift,omitempty"`
}

// FetchDigest is the part of a fetch that replay compares.
type FetchDigest struct {
	Items     int    `json:"items"`
	Total     *int64 `json:"total,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <fetch-id>",
		Short: "Re-run a logged fetch and compare the outcome",
		Long: `Fetch the exact URL of a logged fetch again and compare the item count,
the server total and the error code with the logged outcome.

The new fetch is appended to the same fetch log.

Exit codes:
  0 - Outcome matches the logged fetch
  1 - Outcome drifted
  2 - Command error (fetch log missing, unknown ID)

Examples:
  remoteq replay 01939a3e-... --db ./remoteq.db
  remoteq replay 01939a3e-... --db ./remoteq.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	st, err := openExistingStore(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	original, ok, err := st.GetFetch(ctx, id)
	if err != nil {
		return formatter.FailWith(ExitCommandError, ErrCodeStoreFailed, "failed to read fetch log", err)
	}
	if !ok {
		return formatter.FailWith(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no fetch with id %s", id), nil)
	}
	formatter.VerboseLog("Replaying %s: GET %s", id, original.URL)

	// The logged URL is absolute and already carries every parameter, so
	// an empty query against it requests exactly the same thing.
	recorder := endpointRecorder{next: st, endpoint: original.Endpoint}
	client := newRemoteClient(opts, original.Dialect, recorder)
	page, fetchErr := remote.From[json.RawMessage](client, original.URL).Page(ctx)

	replayed := FetchDigest{ErrorCode: string(remote.CodeOf(fetchErr))}
	if fetchErr == nil {
		replayed.Items = len(page.Items)
		if page.HasTotal {
			total := page.Total
			replayed.Total = &total
		}
	}

	result := ReplayResult{
		ID:       original.ID,
		URL:      original.URL,
		Dialect:  original.Dialect,
		Original: digestOf(original),
		Replayed: replayed,
	}
	result.Drift = compareDigests(result.Original, result.Replayed)
	result.Match = len(result.Drift) == 0

	return outputReplay(formatter, result)
}

// endpointRecorder keeps the original endpoint on records produced by a
// replay, whose query path is the full logged URL.
type endpointRecorder struct {
	next     remote.Recorder
	endpoint string
}

func (r endpointRecorder) RecordFetch(ctx context.Context, rec remote.FetchRecord) error {
	rec.Endpoint = r.endpoint
	return r.next.RecordFetch(ctx, rec)
}

func digestOf(f store.Fetch) FetchDigest {
	d := FetchDigest{Items: f.Items, ErrorCode: f.ErrorCode}
	if f.HasTotal {
		total := f.Total
		d.Total = &total
	}
	return d
}

// compareDigests lists every field that differs between two outcomes.
func compareDigests(want, got FetchDigest) []string {
	var drift []string
	if want.ErrorCode != got.ErrorCode {
		drift = append(drift, fmt.Sprintf("error code: logged %s, replayed %s",
			orDash(want.ErrorCode), orDash(got.ErrorCode)))
	}
	if want.Items != got.Items {
		drift = append(drift, fmt.Sprintf("items: logged %d, replayed %d", want.Items, got.Items))
	}
	if !sameTotal(want.Total, got.Total) {
		drift = append(drift, fmt.Sprintf("total: logged %s, replayed %s",
			totalString(want.Total), totalString(got.Total)))
	}
	return drift
}

func sameTotal(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func totalString(t *int64) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *t)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func outputReplay(formatter *OutputFormatter, result ReplayResult) error {
	if formatter.Format == "json" {
		if !result.Match {
			_ = formatter.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error: &CLIError{
					Code:    ErrCodeGeneric,
					Message: "replay drifted from the logged fetch",
				},
			})
			return NewExitError(ExitFailure, "replay drifted")
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Match {
		fmt.Fprintf(w, "✓ Replay of %s matches\n", result.ID)
		fmt.Fprintf(w, "  url: %s\n", result.URL)
		return nil
	}

	fmt.Fprintf(w, "✗ Replay of %s drifted\n", result.ID)
	fmt.Fprintf(w, "  url: %s\n", result.URL)
	for _, d := range result.Drift {
		fmt.Fprintf(w, "  %s\n", d)
	}
	return NewExitError(ExitFailure, "replay drifted")
}
