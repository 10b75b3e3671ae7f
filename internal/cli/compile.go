package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/remoteq/internal/dialect"
	"github.com/roach88/remoteq/internal/remote"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	All    bool   // compile for every dialect
	Output string // output file path
}

// CompilationResult holds the compiled forms of one definition.
type CompilationResult struct {
	Name     string          `json:"name,omitempty"`
	Endpoint string          `json:"endpoint"`
	Include  string          `json:"include,omitempty"`
	Dialects []CompiledQuery `json:"dialects"`
}

// CompiledQuery is the rendering for one dialect.
type CompiledQuery struct {
	Dialect  string   `json:"dialect"`
	Query    string   `json:"query"`
	URL      string   `json:"url"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <definition>",
		Short: "Compile a query definition to a query string",
		Long: `Compile a YAML or CUE query definition into the query string of a dialect.

The dialect is taken from --dialect when given, otherwise from the
definition's dialect field, otherwise from configuration (default rest).
With --strict, approximations such as REST rendering of OR are errors.

Examples:
  remoteq compile queries/push.yaml
  remoteq compile queries/push.cue --dialect odata
  remoteq compile queries/push.yaml --all --format json
  remoteq compile queries/push.yaml --base-url https://api.example.com -o push.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "compile for every dialect")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON result to a file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadQuery(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load definition", err)
	}
	formatter.VerboseLog("Loaded %s (endpoint %s)", path, loaded.Definition.Endpoint)

	tags := []string{dialectFor(opts.RootOptions, cmd, loaded)}
	if opts.All {
		tags = []string{dialect.REST, dialect.OData}
	}

	include, err := loaded.Includes.Render()
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to render includes", err)
	}

	result := &CompilationResult{
		Name:     loaded.Definition.Name,
		Endpoint: loaded.Definition.Endpoint,
		Include:  include,
	}
	for _, tag := range tags {
		compiled, err := compileFor(opts.RootOptions, loaded, tag)
		if err != nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("compile %s", tag), err)
		}
		result.Dialects = append(result.Dialects, compiled)
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeJSONFile(result, opts.Output); err != nil {
			return formatter.FailWith(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// dialectFor picks the dialect: an explicit --dialect flag, then the
// definition, then configuration.
func dialectFor(opts *RootOptions, cmd *cobra.Command, loaded *LoadedQuery) string {
	if f := cmd.Flags().Lookup("dialect"); f != nil && f.Changed {
		return opts.Config.Dialect
	}
	return strings.ToLower(loaded.Definition.DialectOr(opts.Config.Dialect))
}

// compileFor renders the loaded query for one dialect. The URL is resolved
// against the configured base URL (relative when none is set) and carries
// the include parameter.
func compileFor(opts *RootOptions, loaded *LoadedQuery, tag string) (CompiledQuery, error) {
	res, err := dialect.ForName(tag).Compile(loaded.AST)
	if err != nil {
		return CompiledQuery{}, err
	}
	if opts.Config.Strict {
		if err := res.StrictErr(); err != nil {
			return CompiledQuery{}, err
		}
	}

	client := remote.NewClient(opts.Config.BaseURL,
		remote.WithDialect(tag),
		remote.WithStrict(opts.Config.Strict),
		remote.WithLogger(opts.Logger),
	)
	url, err := remote.FromAST[json.RawMessage](client, loaded.Definition.Endpoint, loaded.AST, loaded.Includes).URL()
	if err != nil {
		return CompiledQuery{}, err
	}

	return CompiledQuery{
		Dialect:  res.Dialect,
		Query:    res.Encode(),
		URL:      url,
		Warnings: res.Warnings,
	}, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s\n\n", result.Endpoint)
	for _, c := range result.Dialects {
		fmt.Fprintf(w, "%s:\n", c.Dialect)
		fmt.Fprintf(w, "  query:   %s\n", c.Query)
		fmt.Fprintf(w, "  url:     %s\n", c.URL)
		for _, warning := range c.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
		fmt.Fprintln(w)
	}
	if result.Include != "" {
		fmt.Fprintf(w, "include: %s\n", result.Include)
	}
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote %s\n", outputFile)
	}
	return nil
}

// writeJSONFile writes v as indented JSON.
func writeJSONFile(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
