package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newTimelineCmd builds `licensure timeline <license-id>`: print the merged
// event timeline, fabricated expirations included.
func newTimelineCmd(deps *Dependencies, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <license-id>",
		Short: "Print the event timeline of a license",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseAsOfFlag(opts)
			if err != nil {
				return err
			}

			items, err := deps.Licenses.Timeline(cmd.Context(), args[0], asOf)
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printResult(cmd, opts, items)
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no history recorded")
				return nil
			}

			rows := make([][]string, len(items))
			for i, item := range items {
				rows[i] = []string{
					item.DateOfUpdate.String(),
					string(item.UpdateType),
					string(item.Kind),
					item.Note,
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), formatTable([]string{"Date", "Update", "Kind", "Note"}, rows))
			return nil
		},
	}
}
