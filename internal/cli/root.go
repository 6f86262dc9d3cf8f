package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root quotagate command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quotagate",
		Short: "Quota decision layer for rate-limited APIs",
		Long: `Quotagate resolves authenticated callers to rate classes, decides which
limit rules apply, and aggregates live quota buckets into a limits report.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newClassCmd(),
		newExampleConfigCmd(),
	)

	return root
}
