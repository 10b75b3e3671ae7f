package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/remoteq/internal/remote"
	"github.com/roach88/remoteq/internal/store"
)

// FetchResult is the outcome of one enumeration.
type FetchResult struct {
	URL     string            `json:"url"`
	Dialect string            `json:"dialect"`
	Count   int               `json:"count"`
	Total   *int64            `json:"total,omitempty"`
	Items   []json.RawMessage `json:"items"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <definition>",
		Short: "Fetch the items a query definition selects",
		Long: `Compile a query definition, fetch it once from the configured service
and print the items. With --db, the fetch is appended to the fetch log.

Exit codes:
  0 - Fetch succeeded
  1 - Fetch failed (transport or decode failure)
  2 - Command error (bad definition, missing base URL, strict rejection)

Examples:
  remoteq fetch queries/push.yaml --base-url https://api.example.com
  remoteq fetch queries/push.cue --dialect odata --db ./remoteq.db
  REMOTEQ_BASE_URL=https://api.example.com remoteq fetch queries/push.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runFetch(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if opts.Config.BaseURL == "" {
		return formatter.FailWith(ExitCommandError, ErrCodeInvalidConfig,
			"base URL is required (set --base-url, REMOTEQ_BASE_URL or base_url)", nil)
	}

	loaded, err := LoadQuery(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load definition", err)
	}
	tag := dialectFor(opts, cmd, loaded)

	var recorder remote.Recorder
	if opts.Config.DB != "" {
		st, err := store.Open(opts.Config.DB)
		if err != nil {
			return formatter.FailWith(ExitCommandError, ErrCodeStoreFailed, "failed to open fetch log", err)
		}
		defer st.Close()
		recorder = st
		formatter.VerboseLog("Logging fetches to %s", opts.Config.DB)
	}

	client := newRemoteClient(opts, tag, recorder)
	query := remote.FromAST[json.RawMessage](client, loaded.Definition.Endpoint, loaded.AST, loaded.Includes)

	url, err := query.URL()
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to compile query", err)
	}
	formatter.VerboseLog("GET %s", url)

	page, err := query.Page(commandContext(cmd))
	if err != nil {
		return formatter.Fail(ExitFailure, "fetch failed", err)
	}

	result := FetchResult{
		URL:     url,
		Dialect: client.Compiler().Dialect(),
		Count:   len(page.Items),
		Items:   page.Items,
	}
	if page.HasTotal {
		total := page.Total
		result.Total = &total
	}

	return outputFetchSuccess(formatter, result)
}

// newRemoteClient builds a client from the resolved configuration.
func newRemoteClient(opts *RootOptions, tag string, recorder remote.Recorder) *remote.Client {
	fetcher := remote.NewHTTPFetcher(
		remote.WithTimeout(opts.Config.Timeout),
		remote.WithFetcherLogger(opts.Logger),
	)
	clientOpts := []remote.Option{
		remote.WithDialect(tag),
		remote.WithFetcher(fetcher),
		remote.WithStrict(opts.Config.Strict),
		remote.WithLogger(opts.Logger),
	}
	if recorder != nil {
		clientOpts = append(clientOpts, remote.WithRecorder(recorder))
	}
	return remote.NewClient(opts.Config.BaseURL, clientOpts...)
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func outputFetchSuccess(formatter *OutputFormatter, result FetchResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Fetched %d item(s) from %s", result.Count, result.URL)
	if result.Total != nil {
		fmt.Fprintf(w, " (total %d)", *result.Total)
	}
	fmt.Fprintln(w)
	for _, item := range result.Items {
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err != nil {
			buf.Reset()
			buf.Write(item)
		}
		fmt.Fprintf(w, "  %s\n", buf.Bytes())
	}
	return nil
}
