// Package cli implements the licensure command-line interface: status
// lookups, timeline inspection, and search-index maintenance.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global CLI flags shared by every subcommand.
type RootOptions struct {
	OutputFormat string
	AsOf         string
}

// NewRootCommand creates the root command with global flags and all
// subcommands mounted.  Dependencies are resolved lazily inside each
// subcommand so `licensure --help` needs no backing services.
func NewRootCommand(deps *Dependencies) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "licensure",
		Short: "Licensure CLI — compact licensing data operations",
		Long: "Inspect license status and history, and maintain the search index,\n" +
			"for the interstate compact licensing platform.\n\n" +
			"Configuration comes from LICENSURE_* environment variables, or the\n" +
			"file named by LICENSURE_CONFIG.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.StringVar(&opts.AsOf, "as-of", "", "reference date for status evaluation (YYYY-MM-DD, default: today)")

	cmd.AddCommand(
		newLookupCmd(deps, opts),
		newTimelineCmd(deps, opts),
		newReindexCmd(deps, opts),
	)

	return cmd
}

// printResult renders data per the selected output format.
func printResult(cmd *cobra.Command, opts *RootOptions, data interface{}) error {
	if strings.EqualFold(opts.OutputFormat, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// formatTable renders headers and rows as an aligned text table.
func formatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i, w := range widths {
			if i > 0 {
				sb.WriteString("  ")
			}
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(cell)
			sb.WriteString(strings.Repeat(" ", w-len(cell)))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	separators := make([]string, len(headers))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}
	writeRow(separators)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}
