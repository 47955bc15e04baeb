package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapquery version, build information and the registered adapters.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "leapquery v%s (commit %s, built %s)\n", version, commit, buildDate)
			_, _ = fmt.Fprintf(out, "Adapters: %v\n", adapter.ListAdapters())
		},
	}
}
