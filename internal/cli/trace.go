package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/remoteq/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Endpoint string // optional - filter to one endpoint
	Failed   bool   // only failed fetches
	Limit    int    // most recent N
	ID       string // show a single fetch
}

// TraceEntry is one logged fetch.
type TraceEntry struct {
	ID         string  `json:"id"`
	Seq        int64   `json:"seq"`
	Endpoint   string  `json:"endpoint"`
	Dialect    string  `json:"dialect"`
	URL        string  `json:"url"`
	Items      int     `json:"items"`
	Total      *int64  `json:"total,omitempty"`
	ErrorCode  string  `json:"error_code,omitempty"`
	Error      string  `json:"error,omitempty"`
	StartedAt  string  `json:"started_at"`
	DurationMS float64 `json:"duration_ms"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Fetches []TraceEntry `json:"fetches"`
	Stats   TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the listed fetches.
type TraceStats struct {
	Total     int `json:"total"`
	Failed    int `json:"failed"`
	Succeeded int `json:"succeeded"`
	Items     int `json:"items"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List logged fetches",
		Long: `List fetches recorded in the fetch log, oldest first.

Each entry shows the dialect, the exact URL requested, how many items came
back (and the server total when reported), and the error code of failed
fetches.

Examples:
  remoteq trace --db ./remoteq.db
  remoteq trace --db ./remoteq.db --endpoint workouts --limit 20
  remoteq trace --db ./remoteq.db --failed --format json
  remoteq trace --db ./remoteq.db --id 01939a3e-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "filter to one endpoint")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only failed fetches")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N fetches")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single fetch by ID")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openExistingStore(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	var fetches []store.Fetch
	if opts.ID != "" {
		f, ok, err := st.GetFetch(ctx, opts.ID)
		if err != nil {
			return formatter.FailWith(ExitCommandError, ErrCodeStoreFailed, "failed to read fetch log", err)
		}
		if !ok {
			return formatter.FailWith(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no fetch with id %s", opts.ID), nil)
		}
		fetches = []store.Fetch{f}
	} else {
		fetches, err = st.ListFetches(ctx, store.ListOptions{
			Endpoint:   opts.Endpoint,
			FailedOnly: opts.Failed,
			Limit:      opts.Limit,
		})
		if err != nil {
			return formatter.FailWith(ExitCommandError, ErrCodeStoreFailed, "failed to read fetch log", err)
		}
	}

	result := buildTraceResult(fetches)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, opts.Config.DB, result)
}

// openExistingStore opens the configured fetch log. A missing file is an
// error rather than silently creating an empty log.
func openExistingStore(opts *RootOptions, formatter *OutputFormatter) (*store.Store, error) {
	path := opts.Config.DB
	if path == "" {
		return nil, formatter.FailWith(ExitCommandError, ErrCodeInvalidConfig,
			"fetch log path is required (set --db, REMOTEQ_DB or db)", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, formatter.Fail(ExitCommandError, "fetch log not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.FailWith(ExitCommandError, ErrCodeStoreFailed, "failed to open fetch log", err)
	}
	return st, nil
}

func buildTraceResult(fetches []store.Fetch) TraceResult {
	result := TraceResult{Fetches: make([]TraceEntry, 0, len(fetches))}
	for _, f := range fetches {
		entry := TraceEntry{
			ID:         f.ID,
			Seq:        f.Seq,
			Endpoint:   f.Endpoint,
			Dialect:    f.Dialect,
			URL:        f.URL,
			Items:      f.Items,
			ErrorCode:  f.ErrorCode,
			Error:      f.Error,
			StartedAt:  f.StartedAt.UTC().Format(time.RFC3339Nano),
			DurationMS: float64(f.Duration) / float64(time.Millisecond),
		}
		if f.HasTotal {
			total := f.Total
			entry.Total = &total
		}
		result.Fetches = append(result.Fetches, entry)

		result.Stats.Total++
		if f.Failed() {
			result.Stats.Failed++
		} else {
			result.Stats.Succeeded++
			result.Stats.Items += f.Items
		}
	}
	return result
}

func outputTraceText(formatter *OutputFormatter, path string, result TraceResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Fetch log: %s\n", path)
	fmt.Fprintln(w)

	if len(result.Fetches) == 0 {
		fmt.Fprintln(w, "No fetches recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-5s %-7s %-6s %-6s %-18s %s\n", "SEQ", "DIALECT", "ITEMS", "TOTAL", "ERROR", "URL")
	for _, e := range result.Fetches {
		total := "-"
		if e.Total != nil {
			total = fmt.Sprintf("%d", *e.Total)
		}
		code := "-"
		if e.ErrorCode != "" {
			code = e.ErrorCode
		}
		fmt.Fprintf(w, "%-5d %-7s %-6d %-6s %-18s %s\n", e.Seq, e.Dialect, e.Items, total, code, e.URL)
		if formatter.Verbose && e.Error != "" {
			fmt.Fprintf(w, "      %s\n", e.Error)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d fetch(es), %d succeeded, %d failed, %d item(s)\n",
		result.Stats.Total, result.Stats.Succeeded, result.Stats.Failed, result.Stats.Items)
	return nil
}
