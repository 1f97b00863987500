package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"coordinator/internal/errs"
)

// Exit codes for CLI commands (§6: "External Interfaces" lists process
// exit codes as part of the coordinator's contract).
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, deployment
	// failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotImplemented indicates a deliberately unimplemented command.
	ExitCodeNotImplemented = 2
)

// rootCmd is the entry point when coordinator is invoked without a
// recognized subcommand.
var rootCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Coordinate distributed service deployment across a set of targets",
	Long: `coordinator computes the difference between a deployed manifest and a
new one, deactivates and activates services in dependency order, migrates
any state that moved between targets, and commits target and coordinator
profiles — a from-scratch Go implementation of the disnix deployment model.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main with
// the build-time-injected version string.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and maps any returned error to an exit
// code understood by scripts driving this tool.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "coordinator version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

func getExitCode(err error) int {
	if errors.Is(err, errs.ErrNotImplemented) {
		return ExitCodeNotImplemented
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newCaptureInfraCmd())
	rootCmd.AddCommand(newConvertManifestCmd())
	rootCmd.AddCommand(newGCCmd())
	rootCmd.AddCommand(newWatchProfileCmd())
	rootCmd.AddCommand(newGraphCmd())
}
