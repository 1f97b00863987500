package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"coordinator/internal/clientiface"
	"coordinator/internal/config"
	"coordinator/internal/manifest"
	"coordinator/internal/migration"
	"coordinator/internal/pipeline"
	"coordinator/internal/procexec"
	"coordinator/internal/profile"
	"coordinator/internal/scheduler"
	"coordinator/internal/storebackend"
	"coordinator/internal/transition"
)

func newDeployCmd() *cobra.Command {
	var (
		oldManifestPath         string
		profileName             string
		noLock                  bool
		noTargetProfiles        bool
		noCoordinatorProfile    bool
		noUpgrade               bool
		transferOnly            bool
		dryRun                  bool
		depthFirst              bool
		maxConcurrentTransfers  int
		configDir               string
	)

	cmd := &cobra.Command{
		Use:   "deploy <manifest.xml>",
		Short: "Deploy a manifest, migrating from the currently deployed one if given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newManifestPath := args[0]

			cfg, err := loadConfigOrDefaults(configDir)
			if err != nil {
				return err
			}
			if profileName != "" {
				cfg.Profile = profileName
			}
			if maxConcurrentTransfers > 0 {
				cfg.MaxConcurrentTransfers = maxConcurrentTransfers
			}
			if depthFirst {
				cfg.MigrationScheduling = config.DepthFirst
			}

			newManifest, err := loadManifestFile(newManifestPath)
			if err != nil {
				return fmt.Errorf("load new manifest: %w", err)
			}

			var oldManifest *manifest.Manifest
			if oldManifestPath != "" {
				oldManifest, err = loadManifestFile(oldManifestPath)
				if err != nil {
					return fmt.Errorf("load old manifest: %w", err)
				}
			}

			services := unionServices(oldManifest, newManifest)

			iface := clientiface.New(cfg.ClientInterface)
			sched := &scheduler.Scheduler{
				Services: services,
				Targets:  newManifest.TargetsTable,
				Spawn: func(m *manifest.ServiceMapping, t *manifest.Target, env []string, dir scheduler.Direction) (procexec.Handle, error) {
					if dryRun {
						return procexec.Start(exec.Command("true"))
					}
					if dir == scheduler.Deactivate {
						return iface.Deactivate(m.Target, mappingType(services, m.Service), env)
					}
					return iface.Activate(m.Target, mappingType(services, m.Service), env)
				},
			}

			migMode := migration.BreadthFirst
			if cfg.MigrationScheduling == config.DepthFirst {
				migMode = migration.DepthFirst
			}

			deps := pipeline.Deps{
				LockInterface:    iface,
				Transition:       &transition.Engine{Scheduler: sched},
				Migration:        migration.NewEngine(iface, newManifest.TargetsTable, services, cfg.MaxConcurrentTransfers),
				ProfileIface:     iface,
				ClosureInterface: iface,
				StoreBackend:     storebackend.NewCLIBackend(cfg.StoreBackend),
			}

			opts := pipeline.Options{
				NoLock:                 noLock,
				NoTargetProfiles:       noTargetProfiles,
				NoCoordinatorProfile:   noCoordinatorProfile,
				NoUpgrade:              noUpgrade,
				TransferOnly:           transferOnly,
				DryRun:                 dryRun,
				Profile:                cfg.Profile,
				CoordinatorProfilePath: cfg.CoordinatorProfilePathBase,
				ManifestFile:           newManifestPath,
				Migration:              migration.Options{Mode: migMode},
			}

			distribution := distributionItems(newManifest)

			ok := pipeline.ActivateSystem(context.Background(), deps, newManifest, oldManifest, distribution, opts)
			if !ok {
				return fmt.Errorf("deployment failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&oldManifestPath, "old-manifest", "", "previously deployed manifest, for diffing (omit for a fresh install)")
	cmd.Flags().StringVar(&profileName, "profile", "", "profile name (defaults to the configured value)")
	cmd.Flags().BoolVar(&noLock, "no-lock", false, "skip target locking")
	cmd.Flags().BoolVar(&noTargetProfiles, "no-target-profiles", false, "skip committing target profiles")
	cmd.Flags().BoolVar(&noCoordinatorProfile, "no-coordinator-profile", false, "skip committing the coordinator profile")
	cmd.Flags().BoolVar(&noUpgrade, "no-upgrade", false, "treat every current mapping as freshly placed for migration purposes")
	cmd.Flags().BoolVar(&transferOnly, "transfer-only", false, "transfer migrated state but skip restoring it")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the transition without locking, activating, or committing anything")
	cmd.Flags().BoolVar(&depthFirst, "depth-first", false, "use depth-first migration scheduling instead of breadth-first")
	cmd.Flags().IntVar(&maxConcurrentTransfers, "max-concurrent-transfers", 0, "override the configured global transfer concurrency limit")
	cmd.Flags().StringVar(&configDir, "config-dir", "", "override the default configuration directory")

	return cmd
}

func loadConfigOrDefaults(configDir string) (config.Config, error) {
	if configDir == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return config.Config{}, err
		}
		configDir = dir
	}
	return config.Load(configDir)
}

func loadManifestFile(path string) (*manifest.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return manifest.ParseXML(f, manifest.FlagAll, nil)
}

func mappingType(services map[string]*manifest.ManifestService, service string) string {
	if svc, ok := services[service]; ok {
		return svc.Type
	}
	return ""
}

// unionServices merges old and new manifests' services tables (§4.6): the
// scheduler needs to resolve a service's type and depends_on edges during
// both deactivation (old state) and activation (new state), including
// services removed entirely between the two manifests. new wins on key
// collision since its definition is what's about to be activated.
func unionServices(oldManifest, newManifest *manifest.Manifest) map[string]*manifest.ManifestService {
	services := make(map[string]*manifest.ManifestService)
	if oldManifest != nil {
		for k, v := range oldManifest.Services {
			services[k] = v
		}
	}
	for k, v := range newManifest.Services {
		services[k] = v
	}
	return services
}

func distributionItems(m *manifest.Manifest) []profile.DistributionItem {
	items := make([]profile.DistributionItem, 0, len(m.ProfileMappingTable))
	for targetKey, storePath := range m.ProfileMappingTable {
		items = append(items, profile.DistributionItem{TargetKey: targetKey, StorePath: storePath})
	}
	return items
}
