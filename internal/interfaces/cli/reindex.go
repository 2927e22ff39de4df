package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openregulatory/licensure/pkg/errors"
)

// newReindexCmd builds `licensure reindex`: rebuild the search index from
// the store.  The run is serialized through a distributed lock when main
// wires one in, so concurrent invocations across operators fail fast.
func newReindexCmd(deps *Dependencies, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the licensee search index from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deps.Reindexer == nil {
				return errors.New(errors.ErrCodeNotImplemented, "search index is not configured")
			}
			stats, err := deps.Reindexer.Run(cmd.Context())
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printResult(cmd, opts, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d of %d licenses (%d failed) in %s\n",
				stats.Indexed, stats.Scanned, stats.Failed, stats.Elapsed)
			return nil
		},
	}
}
