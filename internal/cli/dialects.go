package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/remoteq/internal/dialect"
)

// DialectInfo describes one compiler tag.
type DialectInfo struct {
	Tag         string   `json:"tag"`
	Default     bool     `json:"default"`
	Parameters  []string `json:"parameters"`
	Description string   `json:"description"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dialects",
		Short:         "List query dialects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDialects(rootOpts, cmd)
		},
	}

	return cmd
}

func runDialects(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	infos := dialectInfos(opts.Config.Dialect)

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	for _, info := range infos {
		marker := " "
		if info.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-6s %s\n", marker, info.Tag, info.Description)
		fmt.Fprintf(w, "         params: %v\n", info.Parameters)
	}
	return nil
}

// dialectInfos lists every tag in sorted order, marking the configured one.
func dialectInfos(configured string) []DialectInfo {
	selected := dialect.ForName(configured).Dialect()

	infos := make([]DialectInfo, 0, len(dialect.Names()))
	for _, tag := range dialect.Names() {
		info := DialectInfo{Tag: tag, Default: tag == selected}
		switch tag {
		case dialect.REST:
			info.Description = "field-named parameters, index-based paging, no OR"
			info.Parameters = []string{
				"{field}", "{field}_{op}",
				dialect.RESTSearch, dialect.RESTSort,
				dialect.RESTPageIndex, dialect.RESTPageSize,
			}
		case dialect.OData:
			info.Description = "OData system query options"
			info.Parameters = []string{
				dialect.ODataFilter, dialect.ODataOrderBy,
				dialect.ODataSkip, dialect.ODataTop,
			}
		}
		infos = append(infos, info)
	}
	return infos
}
