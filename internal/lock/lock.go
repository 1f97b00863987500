// Package lock implements the locking phase (§4.8): parallel
// lock-then-wait-for-all across targets, with unlock-on-partial-failure so
// a failed or interrupted lock acquisition never leaves some targets
// locked and others not.
package lock

import (
	"context"
	"sync"

	"coordinator/internal/procexec"
)

// Interface is the subset of clientiface.Interface the locking phase needs,
// named as its own small interface so tests can fake it without spawning
// real subprocesses.
type Interface interface {
	Lock(targetKey, profile string) (procexec.Handle, error)
	Unlock(targetKey, profile string) (procexec.Handle, error)
}

// Acquire locks every target key in targetKeys in parallel, via
// procexec.Iterator so that cancelling ctx (SIGINT, §4.4) stops new lock
// calls from being spawned while already-spawned ones are still awaited. If
// any lock fails, or ctx is cancelled before every target was even
// attempted, every target that *did* lock successfully is unlocked again
// and Acquire returns false (§4.8).
func Acquire(ctx context.Context, iface Interface, targetKeys []string, profile string) bool {
	var mu sync.Mutex
	var locked []string

	allOK := procexec.Iterator(ctx, targetKeys, 0,
		func(key string) (procexec.Handle, error) {
			return iface.Lock(key, profile)
		},
		func(key string, res procexec.Result) {
			if res.Err == nil {
				mu.Lock()
				locked = append(locked, key)
				mu.Unlock()
			}
		},
	)

	if ctx.Err() != nil {
		allOK = false
	}

	if !allOK {
		Release(context.Background(), iface, locked, profile)
		return false
	}
	return true
}

// Release best-effort unlocks every target key in parallel, waiting for all
// of them but never failing the overall operation (§4.8: "report aggregate
// failure but continue").
func Release(ctx context.Context, iface Interface, targetKeys []string, profile string) bool {
	done := make(chan bool, len(targetKeys))
	for _, key := range targetKeys {
		go func(key string) {
			h, err := iface.Unlock(key, profile)
			if err != nil {
				done <- false
				return
			}
			_, waitErr := h.Wait()
			done <- waitErr == nil
		}(key)
	}

	allOK := true
	for range targetKeys {
		if !<-done {
			allOK = false
		}
	}
	return allOK
}
