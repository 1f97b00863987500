package lock

import (
	"context"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordinator/internal/procexec"
)

type fakeInterface struct {
	mu          sync.Mutex
	failLock    map[string]bool
	locked      map[string]bool
	unlocked    map[string]bool
	onLock      func(targetKey string)
}

func newFakeInterface() *fakeInterface {
	return &fakeInterface{
		failLock: make(map[string]bool),
		locked:   make(map[string]bool),
		unlocked: make(map[string]bool),
	}
}

func (f *fakeInterface) Lock(targetKey, profile string) (procexec.Handle, error) {
	if f.onLock != nil {
		f.onLock(targetKey)
	}
	f.mu.Lock()
	fail := f.failLock[targetKey]
	f.mu.Unlock()
	if fail {
		return procexec.Start(exec.Command("false"))
	}
	f.mu.Lock()
	f.locked[targetKey] = true
	f.mu.Unlock()
	return procexec.Start(exec.Command("true"))
}

func (f *fakeInterface) Unlock(targetKey, profile string) (procexec.Handle, error) {
	f.mu.Lock()
	f.unlocked[targetKey] = true
	f.mu.Unlock()
	return procexec.Start(exec.Command("true"))
}

func TestAcquireSucceedsWhenAllLock(t *testing.T) {
	f := newFakeInterface()
	ok := Acquire(context.Background(), f, []string{"t1", "t2", "t3"}, "default")
	assert.True(t, ok)
	assert.Empty(t, f.unlocked)
}

func TestAcquireUnlocksOnPartialFailure(t *testing.T) {
	f := newFakeInterface()
	f.failLock["t2"] = true
	ok := Acquire(context.Background(), f, []string{"t1", "t2", "t3"}, "default")
	assert.False(t, ok)
	assert.True(t, f.unlocked["t1"])
	assert.True(t, f.unlocked["t3"])
	assert.False(t, f.unlocked["t2"]) // t2 itself never locked
}

func TestAcquireStopsSpawningOnCancellation(t *testing.T) {
	f := newFakeInterface()
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	f.onLock = func(targetKey string) {
		f.mu.Lock()
		calls++
		n := calls
		f.mu.Unlock()
		if n == 1 {
			cancel()
		}
	}

	ok := Acquire(ctx, f, []string{"t1", "t2", "t3"}, "default")
	assert.False(t, ok)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Less(t, len(f.locked), 3, "cancellation should have stopped at least one lock from ever being spawned")
	for key := range f.locked {
		assert.True(t, f.unlocked[key], "anything that did lock must be unlocked again")
	}
}

func TestReleaseIsBestEffort(t *testing.T) {
	f := newFakeInterface()
	ok := Release(context.Background(), f, []string{"t1", "t2"}, "default")
	assert.True(t, ok)
	assert.True(t, f.unlocked["t1"])
	assert.True(t, f.unlocked["t2"])
}
