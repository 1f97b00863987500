// Package pipeline implements the top-level deployment driver (§4.10):
// lock → deactivate/activate → migrate → commit target profiles → unlock →
// commit coordinator profile — composing C6 through C9 and C7 behind a
// single exit-code result.
package pipeline

import (
	"context"
	"os/signal"
	"syscall"

	"coordinator/internal/closure"
	"coordinator/internal/lock"
	"coordinator/internal/manifest"
	"coordinator/internal/migration"
	"coordinator/internal/profile"
	"coordinator/internal/storebackend"
	"coordinator/internal/transition"
	"coordinator/pkg/logging"
)

// Options are the deploy-time flags §4.10 names.
type Options struct {
	NoLock                 bool
	NoTargetProfiles       bool
	NoCoordinatorProfile   bool
	NoUpgrade              bool
	TransferOnly           bool
	DryRun                 bool
	Profile                string
	CoordinatorProfilePath string
	ManifestFile           string
	Migration              migration.Options
}

// Deps bundles the phase implementations ActivateSystem composes. Kept as
// a struct of small per-phase interfaces and engines (rather than one fat
// interface) so callers can swap in fakes per-phase in tests without
// implementing unrelated methods.
type Deps struct {
	LockInterface lock.Interface
	Transition    *transition.Engine
	Migration     *migration.Engine
	ProfileIface  profile.Interface
	// ClosureInterface and StoreBackend drive pre-activation closure
	// distribution (§4.11): copying each target's missing store paths
	// before activation needs them present. Either being nil skips the
	// phase entirely (e.g. in tests that don't exercise C11).
	ClosureInterface closure.RemoteInterface
	StoreBackend     storebackend.Backend
}

// ActivateSystem runs §4.10's phase sequence and returns true iff every
// non-skipped phase succeeded.
func ActivateSystem(ctx context.Context, deps Deps, newManifest, oldManifest *manifest.Manifest, distribution []profile.DistributionItem, opts Options) bool {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT)
	defer stop()

	targetKeys := allTargetKeys(newManifest, oldManifest)

	locked := false
	if !opts.NoLock && !opts.DryRun {
		if !lock.Acquire(ctx, deps.LockInterface, targetKeys, opts.Profile) {
			logging.Coordinator("failed to acquire locks, aborting")
			return false
		}
		locked = true
	}

	if deps.StoreBackend != nil && deps.ClosureInterface != nil && !opts.DryRun {
		if !distributeClosures(deps.StoreBackend, deps.ClosureInterface, distribution) {
			logging.Coordinator("closure distribution failed, releasing locks")
			if locked {
				lock.Release(context.Background(), deps.LockInterface, targetKeys, opts.Profile)
			}
			return false
		}
	}

	oldMappings := []*manifest.ServiceMapping{}
	if oldManifest != nil {
		oldMappings = oldManifest.ServiceMappingArray
	}

	res := deps.Transition.Run(ctx, oldMappings, newManifest.ServiceMappingArray)
	if !res.Success {
		logging.Coordinator("transition failed, releasing locks")
		if locked {
			lock.Release(context.Background(), deps.LockInterface, targetKeys, opts.Profile)
		}
		return false
	}

	if deps.Migration != nil && !opts.DryRun {
		oldSnapshots := []*manifest.SnapshotMapping{}
		if oldManifest != nil {
			oldSnapshots = oldManifest.SnapshotMappingArray
		}
		moves := migration.DetectMoves(oldSnapshots, newManifest.SnapshotMappingArray, opts.NoUpgrade)
		migOpts := opts.Migration
		migOpts.TransferOnly = opts.TransferOnly
		if !deps.Migration.Migrate(ctx, moves, migOpts) {
			logging.Coordinator("state migration failed, releasing locks")
			if locked {
				lock.Release(context.Background(), deps.LockInterface, targetKeys, opts.Profile)
			}
			return false
		}
	}

	if !opts.NoTargetProfiles && !opts.DryRun {
		if !profile.SetTargetProfiles(ctx, deps.ProfileIface, distribution, opts.Profile) {
			logging.Coordinator("setting target profiles failed, releasing locks")
			if locked {
				lock.Release(context.Background(), deps.LockInterface, targetKeys, opts.Profile)
			}
			return false
		}
	}

	if locked {
		lock.Release(context.Background(), deps.LockInterface, targetKeys, opts.Profile)
	}

	if !opts.NoCoordinatorProfile && !opts.DryRun {
		if err := profile.SetCoordinatorProfile(opts.CoordinatorProfilePath, opts.ManifestFile, opts.Profile); err != nil {
			logging.Coordinator("setting coordinator profile failed: %v", err)
			return false
		}
	}

	logging.Coordinator("deployment succeeded")
	return true
}

// distributeClosures runs CopyClosureTo for every distribution item (§4.11),
// sending each target just the store paths its local store is missing.
// Items are handled one at a time, in order; the global transfer budget is
// not consulted here. Failures are aggregated but every item is still
// attempted, matching the
// rest of the pipeline's "report every failure" phases.
func distributeClosures(local storebackend.Backend, remote closure.RemoteInterface, distribution []profile.DistributionItem) bool {
	ok := true
	for _, item := range distribution {
		if err := closure.CopyClosureTo(local, remote, item.TargetKey, []string{item.StorePath}); err != nil {
			logging.TargetError(item.TargetKey, "distribute closure: %v", err)
			ok = false
		}
	}
	return ok
}

func allTargetKeys(manifests ...*manifest.Manifest) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range manifests {
		if m == nil {
			continue
		}
		for k := range m.TargetsTable {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
