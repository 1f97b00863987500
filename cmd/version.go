package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd prints the CLI's own build-time version. Unlike the
// teacher's version command, there is no remote server handshake to
// report on — this coordinator is a one-shot CLI, not a client of a
// long-running aggregator.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the coordinator version",
		Long:  `Prints the coordinator CLI's build-time version string.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coordinator version %s\n", rootCmd.Version)
		},
	}
}
