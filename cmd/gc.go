package cmd

import (
	"github.com/spf13/cobra"

	"coordinator/internal/cli"
	"coordinator/internal/profile"
)

// newGCCmd prints the coordinator profile's generation history, grounded
// on src/libdeploy/profiles.c's generation-listing behavior.
func newGCCmd() *cobra.Command {
	var (
		profileName string
		configDir   string
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "List the coordinator profile's generation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefaults(configDir)
			if err != nil {
				return err
			}
			if profileName != "" {
				cfg.Profile = profileName
			}

			gens, err := profile.ListGenerations(cfg.CoordinatorProfilePathBase, cfg.Profile)
			if err != nil {
				return err
			}

			w := cli.NewPlainTableWriter(cmd.OutOrStdout())
			w.SetHeaders([]string{"generation", "manifest", "current"})
			for _, g := range gens {
				current := ""
				if g.Current {
					current = "*"
				}
				w.AppendRow([]string{g.Name, g.Target, current})
			}
			w.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "", "profile name (defaults to the configured value)")
	cmd.Flags().StringVar(&configDir, "config-dir", "", "override the default configuration directory")

	return cmd
}
