// Package target implements the per-target core-budget primitives (§4.3):
// a non-blocking semaphore over Target.available_cores, target-key lookup,
// and container environment assembly for subprocess invocation.
package target

import (
	"fmt"
	"sort"

	"coordinator/internal/manifest"
)

// RequestCore atomically decrements t.AvailableCores if positive, returning
// true on success. It never blocks — callers that get false are expected to
// retry on a later outer pass (§4.3, §5). There is exactly one goroutine
// that ever calls this (the scheduler's outer loop), so no synchronization
// is needed.
func RequestCore(t *manifest.Target) bool {
	if t.AvailableCores > 0 {
		t.AvailableCores--
		return true
	}
	return false
}

// ReleaseCore increments t.AvailableCores, making a core available again.
func ReleaseCore(t *manifest.Target) {
	t.AvailableCores++
}

// FindTargetKey returns the value of the property named by
// t.TargetProperty, which by §3's invariant is guaranteed to exist.
func FindTargetKey(t *manifest.Target) string {
	return t.Properties[t.TargetProperty].String()
}

// ContainerEnv returns the KEY=VALUE strings assembled from the named
// container's property table, in sorted key order for determinism. Returns
// an empty (non-nil) slice if the container isn't hosted on this target.
func ContainerEnv(t *manifest.Target, containerName string) []string {
	props, ok := t.Containers[containerName]
	if !ok {
		return []string{}
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, props[k]))
	}
	return env
}
