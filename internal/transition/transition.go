// Package transition implements the activation/deactivation transition
// engine (§4.6): diff an old and new manifest's service mappings, run the
// scheduler's deactivation strategy then its activation strategy, and roll
// back the service-activation phase (never migration) on failure.
package transition

import (
	"context"

	"coordinator/internal/manifest"
	"coordinator/internal/scheduler"
)

// Result reports what the transition actually did.
type Result struct {
	Success bool
	// Union is the full working set (old ∪ new) with the statuses the
	// passes left behind.
	Union []*manifest.ServiceMapping
	// RolledBack is true if a rollback pass ran (whether or not it fully
	// succeeded — §4.6 reports failure regardless of rollback outcome).
	RolledBack bool
}

// Engine runs one transition between two mapping arrays. The scheduler's
// Services must be the union of old and new (§4.6: "the services table consulted by the
// scheduler is the union of old and new services tables").
type Engine struct {
	Scheduler *scheduler.Scheduler
}

// Run executes §4.6 steps 1-4 against old and new mapping arrays (both
// already sorted by key, §4.1).
//
// Every traversal — the outer driver loop and the dependency lookups it
// does against union — must mutate the same underlying *ServiceMapping
// objects, since a dependency's terminal status is read directly off the
// object union holds. deactivate/activate/oldInUnion are therefore built by
// resolving each key back into union's pointers, not by reusing old/new_'s
// own (distinct) pointers.
func (e *Engine) Run(ctx context.Context, old, new_ []*manifest.ServiceMapping) Result {
	inter := manifest.IntersectServiceMappings(new_, old)
	deactivateKeys := manifest.SubtractServiceMappings(old, inter)
	activateKeys := manifest.SubtractServiceMappings(new_, inter)
	union := manifest.UnifyServiceMappings(old, new_, inter)

	deactivate := resolveInUnion(deactivateKeys, union)
	activate := resolveInUnion(activateKeys, union)
	oldInUnion := resolveInUnion(old, union)

	if !e.Scheduler.Run(ctx, deactivate, union, scheduler.Deactivate) {
		// roll back: re-activate anything that got deactivated.
		e.Scheduler.Run(ctx, oldInUnion, union, scheduler.Activate)
		return Result{Success: false, Union: union, RolledBack: true}
	}

	if !e.Scheduler.Run(ctx, activate, union, scheduler.Activate) {
		// roll back in two steps: first deactivate everything in activate
		// (whether it finished activating or errored partway — the whole
		// attempted set is torn back down), then re-activate old.mappings.
		markActivated(activate)
		e.Scheduler.Run(ctx, activate, union, scheduler.Deactivate)
		e.Scheduler.Run(ctx, oldInUnion, union, scheduler.Activate)
		return Result{Success: false, Union: union, RolledBack: true}
	}

	return Result{Success: true, Union: union}
}

// resolveInUnion maps each key in keyed onto the actual pointer union holds
// for that key, so later mutation through either slice is visible through
// the other.
func resolveInUnion(keyed []*manifest.ServiceMapping, union []*manifest.ServiceMapping) []*manifest.ServiceMapping {
	out := make([]*manifest.ServiceMapping, 0, len(keyed))
	for _, k := range keyed {
		if m, ok := manifest.FindServiceMappingInSlice(union, k.Key()); ok {
			out = append(out, m)
		}
	}
	return out
}

// markActivated forces every mapping to ACTIVATED, the scheduler's required
// starting state for a deactivation pass, overwriting whatever ERROR/
// DEACTIVATED state the failed activation attempt left behind.
func markActivated(mappings []*manifest.ServiceMapping) {
	for _, m := range mappings {
		m.Status = manifest.StatusActivated
	}
}
