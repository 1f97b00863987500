package cmd

import (
	"github.com/spf13/cobra"

	"coordinator/internal/errs"
)

// newCaptureInfraCmd is a documented stub. Capturing live infrastructure
// state against a real target requires a package-manager back end
// (spec.md §1's explicit Non-goal), so there is nothing behind this verb
// to call — it exists only so the command surface matches what a real
// deployment of this tool would expose.
func newCaptureInfraCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture-infra",
		Short: "Capture live target configuration into an infrastructure manifest (not implemented)",
		Long: `capture-infra would normally query every configured target's
client-interface for its current container configuration and assemble an
infrastructure manifest from the result. That requires a real
package-manager back end to query, which is explicitly out of scope here
— this command is a documented stub.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errs.ErrNotImplemented
		},
	}
}
