// Package migration implements the state-migration engine (§4.7):
// snapshot→transfer→restore for every service whose placement moved
// between an old and a new manifest, in either breadth-first (default) or
// depth-first scheduling, bounded by per-target core budgets and a global
// transfer concurrency limit.
package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"coordinator/internal/manifest"
	"coordinator/internal/procexec"
	"coordinator/internal/target"
)

// Move describes one service whose snapshot placement changed (§4.7):
// present under OldTarget in the old manifest and NewTarget in the new
// one. OldTarget is empty for a fresh placement under NO_UPGRADE where
// nothing existed before.
type Move struct {
	Component string
	Container string
	Service   string
	OldTarget string
	NewTarget string
}

// DetectMoves compares old and new snapshot-mapping arrays and returns
// every (container, component) pair whose target changed. Comparison
// ignores target when building the identity key, since that's exactly
// what "moved" means here — unlike ServiceMapping diffing (§4.2), which
// treats target as part of the identity.
//
// noUpgrade treats every mapping in new_ as moved (the initial install
// case, §4.7), regardless of whether it already existed under the same
// target in old.
func DetectMoves(old, new_ []*manifest.SnapshotMapping, noUpgrade bool) []Move {
	type key struct{ container, component string }
	oldIndex := make(map[key]*manifest.SnapshotMapping, len(old))
	for _, o := range old {
		oldIndex[key{o.Container, o.Component}] = o
	}

	var moves []Move
	for _, n := range new_ {
		k := key{n.Container, n.Component}
		o, existed := oldIndex[k]

		if noUpgrade {
			oldTarget := ""
			if existed {
				oldTarget = o.Target
			}
			moves = append(moves, Move{Component: n.Component, Container: n.Container, Service: n.Service, OldTarget: oldTarget, NewTarget: n.Target})
			continue
		}

		if existed && o.Target != n.Target {
			moves = append(moves, Move{Component: n.Component, Container: n.Container, Service: n.Service, OldTarget: o.Target, NewTarget: n.Target})
		}
	}
	return moves
}

// SchedulingMode selects breadth-first (phase-at-a-time across all moves)
// or depth-first (one move's full chain at a time, per target) scheduling.
type SchedulingMode int

const (
	BreadthFirst SchedulingMode = iota
	DepthFirst
)

// Options configures one migration run (§4.7).
type Options struct {
	Mode         SchedulingMode
	TransferAll  bool // ALL granularity vs. default latest-generation-only
	TransferOnly bool // skip the restore phase
	Keep         int  // clean-snapshots --keep N after a depth-first mapping's restore; 0 = skip
}

// Interface is the subset of clientiface.Interface the migration engine
// needs.
type Interface interface {
	Snapshot(targetKey, mappingType string, env []string) (procexec.Handle, error)
	Restore(targetKey, mappingType string, env []string) (procexec.Handle, error)
	CopySnapshotsTo(targetKey string, env []string, all bool, generation int) (procexec.Handle, error)
	CleanSnapshots(targetKey string, keep int, env []string) (procexec.Handle, error)
}

// Engine runs migrations against a fixed targets/services universe.
type Engine struct {
	Iface    Interface
	Targets  map[string]*manifest.Target
	Services map[string]*manifest.ManifestService
	// Transfers bounds the number of concurrent transfer operations
	// globally (§5, §4.7) — the one place the spec calls for a budget that
	// isn't per-target.
	Transfers *semaphore.Weighted

	semsMu sync.Mutex
	sems   map[string]chan struct{}

	// generations records the most recent SnapshotGeneration reported for
	// each (target, container, component) triple snapshotOne has run
	// against, consumed by transferOne (ALL vs. latest-generation transfer)
	// and cleanOne (telling the target which generation just got created).
	generationsMu sync.Mutex
	generations   map[string]SnapshotGeneration
}

// NewEngine builds an Engine with the given global transfer concurrency
// bound (defaulting to 2, matching the coordinator config default, §4.0b).
func NewEngine(iface Interface, targets map[string]*manifest.Target, services map[string]*manifest.ManifestService, maxConcurrentTransfers int) *Engine {
	if maxConcurrentTransfers <= 0 {
		maxConcurrentTransfers = 2
	}
	return &Engine{
		Iface:     iface,
		Targets:   targets,
		Services:  services,
		Transfers: semaphore.NewWeighted(int64(maxConcurrentTransfers)),
		sems:      make(map[string]chan struct{}),
	}
}

// Migrate runs every move to completion per opts.Mode, returning true iff
// every subprocess across every phase succeeded. Per §4.7's failure
// policy, an individual failure fails the overall migration but does not
// unwind already-completed mappings — state migration has no rollback.
func (e *Engine) Migrate(ctx context.Context, moves []Move, opts Options) bool {
	if opts.Mode == DepthFirst {
		return e.runDepthFirst(ctx, moves, opts)
	}
	return e.runBreadthFirst(ctx, moves, opts)
}

func (e *Engine) runBreadthFirst(ctx context.Context, moves []Move, opts Options) bool {
	okSnapshot := parallelEach(moves, func(mv Move) error { return e.snapshotOne(ctx, mv) })
	okTransfer := parallelEach(moves, func(mv Move) error { return e.transferOne(ctx, mv, opts.TransferAll) })
	okRestore := true
	if !opts.TransferOnly {
		okRestore = parallelEach(moves, func(mv Move) error { return e.restoreOne(ctx, mv) })
	}
	return okSnapshot && okTransfer && okRestore
}

func (e *Engine) runDepthFirst(ctx context.Context, moves []Move, opts Options) bool {
	groups := make(map[string][]Move)
	for _, mv := range moves {
		groups[mv.OldTarget] = append(groups[mv.OldTarget], mv)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return parallelEach(keys, func(targetKey string) error {
		for _, mv := range groups[targetKey] {
			if err := e.snapshotOne(ctx, mv); err != nil {
				return err
			}
			if err := e.transferOne(ctx, mv, opts.TransferAll); err != nil {
				return err
			}
			if !opts.TransferOnly {
				if err := e.restoreOne(ctx, mv); err != nil {
					return err
				}
			}
			if opts.Keep > 0 {
				if err := e.cleanOne(ctx, mv, opts.Keep); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (e *Engine) mappingType(service string) string {
	if svc, ok := e.Services[service]; ok {
		return svc.Type
	}
	return ""
}

func (e *Engine) snapshotOne(ctx context.Context, mv Move) error {
	if mv.OldTarget == "" {
		return nil // NO_UPGRADE with nothing previously placed: nothing to snapshot
	}
	e.acquireCore(mv.OldTarget)
	defer e.releaseCore(mv.OldTarget)

	env := target.ContainerEnv(e.Targets[mv.OldTarget], mv.Container)
	h, err := e.Iface.Snapshot(mv.OldTarget, e.mappingType(mv.Service), env)
	if err != nil {
		return err
	}
	lines, err := h.Wait()
	if err != nil {
		return err
	}
	if gen, parseErr := parseSnapshotGeneration(lines); parseErr == nil && gen.GenerationNumber > 0 {
		e.recordGeneration(mv, gen)
	}
	return nil
}

func (e *Engine) recordGeneration(mv Move, gen SnapshotGeneration) {
	e.generationsMu.Lock()
	defer e.generationsMu.Unlock()
	if e.generations == nil {
		e.generations = make(map[string]SnapshotGeneration)
	}
	e.generations[generationKey(mv)] = gen
}

func (e *Engine) generationFor(mv Move) (SnapshotGeneration, bool) {
	e.generationsMu.Lock()
	defer e.generationsMu.Unlock()
	gen, ok := e.generations[generationKey(mv)]
	return gen, ok
}

func (e *Engine) transferOne(ctx context.Context, mv Move, all bool) error {
	if mv.OldTarget == "" {
		return nil
	}
	if err := e.Transfers.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.Transfers.Release(1)

	generation := 0
	if !all {
		if gen, ok := e.generationFor(mv); ok {
			generation = gen.GenerationNumber
		}
	}

	env := target.ContainerEnv(e.Targets[mv.OldTarget], mv.Container)
	h, err := e.Iface.CopySnapshotsTo(mv.NewTarget, env, all, generation)
	if err != nil {
		return err
	}
	_, err = h.Wait()
	return err
}

func (e *Engine) restoreOne(ctx context.Context, mv Move) error {
	e.acquireCore(mv.NewTarget)
	defer e.releaseCore(mv.NewTarget)

	env := target.ContainerEnv(e.Targets[mv.NewTarget], mv.Container)
	h, err := e.Iface.Restore(mv.NewTarget, e.mappingType(mv.Service), env)
	if err != nil {
		return err
	}
	_, err = h.Wait()
	return err
}

func (e *Engine) cleanOne(ctx context.Context, mv Move, keep int) error {
	env := target.ContainerEnv(e.Targets[mv.OldTarget], mv.Container)
	if gen, ok := e.generationFor(mv); ok {
		env = append(env, fmt.Sprintf("SNAPSHOT_GENERATION=%d", gen.GenerationNumber))
	}
	h, err := e.Iface.CleanSnapshots(mv.OldTarget, keep, env)
	if err != nil {
		return err
	}
	_, err = h.Wait()
	return err
}

// acquireCore blocks until a core is available on targetKey, sized from
// that target's NumOfCores (§4.7's "bounded by per-target core
// semaphore"). Unlike the scheduler's non-blocking RequestCore (§4.3),
// migration's per-move goroutines can simply block, since there is no
// dependency-ordering outer loop to keep live here.
func (e *Engine) acquireCore(targetKey string) {
	e.semsMu.Lock()
	sem, ok := e.sems[targetKey]
	if !ok {
		cores := 1
		if t, ok := e.Targets[targetKey]; ok && t.NumOfCores > 0 {
			cores = t.NumOfCores
		}
		sem = make(chan struct{}, cores)
		e.sems[targetKey] = sem
	}
	e.semsMu.Unlock()
	sem <- struct{}{}
}

func (e *Engine) releaseCore(targetKey string) {
	e.semsMu.Lock()
	sem := e.sems[targetKey]
	e.semsMu.Unlock()
	if sem != nil {
		<-sem
	}
}

// parallelEach runs f concurrently for every item, waits for all to
// finish, and returns true iff every call returned nil.
func parallelEach[T any](items []T, f func(T) error) bool {
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := true
	for _, item := range items {
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			if err := f(item); err != nil {
				mu.Lock()
				ok = false
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()
	return ok
}
