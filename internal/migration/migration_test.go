package migration

import (
	"context"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordinator/internal/manifest"
	"coordinator/internal/procexec"
)

// fakeInterface records every verb invocation, in order, per target key, so
// tests can assert on phase interleaving (or lack of it) without needing a
// real client-interface binary.
type fakeInterface struct {
	mu         sync.Mutex
	calls      map[string][]string // targetKey -> ordered verb log
	fail       map[string]bool     // targetKey -> verb that should fail, e.g. "restore"
	generation string               // line Snapshot reports on stdout, if any
	transfers  []int                // generation arg CopySnapshotsTo was called with, in order
}

func newFakeInterface() *fakeInterface {
	return &fakeInterface{calls: make(map[string][]string), fail: make(map[string]bool)}
}

func (f *fakeInterface) record(targetKey, verb string) (procexec.Handle, error) {
	f.mu.Lock()
	f.calls[targetKey] = append(f.calls[targetKey], verb)
	shouldFail := f.fail[targetKey+":"+verb]
	f.mu.Unlock()

	if shouldFail {
		return procexec.Start(exec.Command("false"))
	}
	return procexec.Start(exec.Command("true"))
}

func (f *fakeInterface) Snapshot(targetKey, mappingType string, env []string) (procexec.Handle, error) {
	h, err := f.record(targetKey, "snapshot")
	if err != nil || f.generation == "" {
		return h, err
	}
	wait := h.Wait
	h.Wait = func() ([]string, error) {
		_, waitErr := wait()
		return []string{f.generation}, waitErr
	}
	return h, nil
}

func (f *fakeInterface) Restore(targetKey, mappingType string, env []string) (procexec.Handle, error) {
	return f.record(targetKey, "restore")
}

func (f *fakeInterface) CopySnapshotsTo(targetKey string, env []string, all bool, generation int) (procexec.Handle, error) {
	f.mu.Lock()
	f.transfers = append(f.transfers, generation)
	f.mu.Unlock()
	return f.record(targetKey, "transfer")
}

func (f *fakeInterface) CleanSnapshots(targetKey string, keep int, env []string) (procexec.Handle, error) {
	f.mu.Lock()
	f.calls[targetKey] = append(f.calls[targetKey], "clean")
	f.mu.Unlock()
	return procexec.Start(exec.Command("true"))
}

func newTestTarget(cores int) *manifest.Target {
	return &manifest.Target{
		NumOfCores:     cores,
		AvailableCores: cores,
		Containers:     map[string]map[string]string{"process": {}},
	}
}

func TestDetectMovesFindsRetargetedComponent(t *testing.T) {
	old := []*manifest.SnapshotMapping{
		{Component: "db", Container: "process", Target: "t1", Service: "database"},
	}
	new_ := []*manifest.SnapshotMapping{
		{Component: "db", Container: "process", Target: "t2", Service: "database"},
	}

	moves := DetectMoves(old, new_, false)
	require.Len(t, moves, 1)
	assert.Equal(t, "t1", moves[0].OldTarget)
	assert.Equal(t, "t2", moves[0].NewTarget)
}

func TestDetectMovesIgnoresUnchangedPlacement(t *testing.T) {
	old := []*manifest.SnapshotMapping{
		{Component: "db", Container: "process", Target: "t1", Service: "database"},
	}
	new_ := []*manifest.SnapshotMapping{
		{Component: "db", Container: "process", Target: "t1", Service: "database"},
	}

	assert.Empty(t, DetectMoves(old, new_, false))
}

func TestDetectMovesNoUpgradeTreatsEverythingAsMoved(t *testing.T) {
	old := []*manifest.SnapshotMapping{
		{Component: "db", Container: "process", Target: "t1", Service: "database"},
	}
	new_ := []*manifest.SnapshotMapping{
		{Component: "db", Container: "process", Target: "t1", Service: "database"},
	}

	moves := DetectMoves(old, new_, true)
	require.Len(t, moves, 1)
	assert.Equal(t, "t1", moves[0].OldTarget)
	assert.Equal(t, "t1", moves[0].NewTarget)
}

func TestMigrateBreadthFirstRunsEachPhaseAcrossAllMoves(t *testing.T) {
	iface := newFakeInterface()
	targets := map[string]*manifest.Target{"t1": newTestTarget(2), "t2": newTestTarget(2)}
	services := map[string]*manifest.ManifestService{"database": {Name: "database", Type: "process"}}

	moves := []Move{
		{Component: "db", Container: "process", Service: "database", OldTarget: "t1", NewTarget: "t2"},
	}

	e := NewEngine(iface, targets, services, 2)
	ok := e.Migrate(context.Background(), moves, Options{Mode: BreadthFirst})
	require.True(t, ok)

	assert.Equal(t, []string{"snapshot"}, iface.calls["t1"])
	assert.Equal(t, []string{"transfer", "restore"}, iface.calls["t2"])
}

func TestMigrateDepthFirstRunsMappingChainWithoutInterleaving(t *testing.T) {
	iface := newFakeInterface()
	targets := map[string]*manifest.Target{"t1": newTestTarget(2)}
	services := map[string]*manifest.ManifestService{
		"database": {Name: "database", Type: "process"},
		"cache":    {Name: "cache", Type: "process"},
	}

	moves := []Move{
		{Component: "db", Container: "process", Service: "database", OldTarget: "t1", NewTarget: "t1"},
		{Component: "cache", Container: "process", Service: "cache", OldTarget: "t1", NewTarget: "t1"},
	}

	e := NewEngine(iface, targets, services, 2)
	ok := e.Migrate(context.Background(), moves, Options{Mode: DepthFirst, Keep: 2})
	require.True(t, ok)

	calls := iface.calls["t1"]
	require.Len(t, calls, 8)
	// Each mapping's chain runs consecutively, back-to-back, in its own
	// four-call block: no interleaving of the other mapping's verbs.
	assert.Equal(t, []string{"snapshot", "transfer", "restore", "clean"}, calls[0:4])
	assert.Equal(t, []string{"snapshot", "transfer", "restore", "clean"}, calls[4:8])
}

func TestMigrateTransferOnlySkipsRestore(t *testing.T) {
	iface := newFakeInterface()
	targets := map[string]*manifest.Target{"t1": newTestTarget(2), "t2": newTestTarget(2)}
	services := map[string]*manifest.ManifestService{"database": {Name: "database", Type: "process"}}

	moves := []Move{
		{Component: "db", Container: "process", Service: "database", OldTarget: "t1", NewTarget: "t2"},
	}

	e := NewEngine(iface, targets, services, 2)
	ok := e.Migrate(context.Background(), moves, Options{Mode: BreadthFirst, TransferOnly: true})
	require.True(t, ok)

	assert.NotContains(t, iface.calls["t2"], "restore")
}

func TestMigrateTransfersLatestGenerationWhenNotAll(t *testing.T) {
	iface := newFakeInterface()
	iface.generation = "7 1700000000"
	targets := map[string]*manifest.Target{"t1": newTestTarget(2), "t2": newTestTarget(2)}
	services := map[string]*manifest.ManifestService{"database": {Name: "database", Type: "process"}}

	moves := []Move{
		{Component: "db", Container: "process", Service: "database", OldTarget: "t1", NewTarget: "t2"},
	}

	e := NewEngine(iface, targets, services, 2)
	ok := e.Migrate(context.Background(), moves, Options{Mode: BreadthFirst})
	require.True(t, ok)

	require.Len(t, iface.transfers, 1)
	assert.Equal(t, 7, iface.transfers[0])
}

func TestMigrateTransfersAllIgnoresGeneration(t *testing.T) {
	iface := newFakeInterface()
	iface.generation = "7 1700000000"
	targets := map[string]*manifest.Target{"t1": newTestTarget(2), "t2": newTestTarget(2)}
	services := map[string]*manifest.ManifestService{"database": {Name: "database", Type: "process"}}

	moves := []Move{
		{Component: "db", Container: "process", Service: "database", OldTarget: "t1", NewTarget: "t2"},
	}

	e := NewEngine(iface, targets, services, 2)
	ok := e.Migrate(context.Background(), moves, Options{Mode: BreadthFirst, TransferAll: true})
	require.True(t, ok)

	require.Len(t, iface.transfers, 1)
	assert.Equal(t, 0, iface.transfers[0])
}

func TestMigrateFailurePropagatesWithoutAffectingOtherMoves(t *testing.T) {
	iface := newFakeInterface()
	iface.fail["t2:restore"] = true
	targets := map[string]*manifest.Target{"t1": newTestTarget(2), "t2": newTestTarget(2), "t3": newTestTarget(2)}
	services := map[string]*manifest.ManifestService{
		"database": {Name: "database", Type: "process"},
		"cache":    {Name: "cache", Type: "process"},
	}

	moves := []Move{
		{Component: "db", Container: "process", Service: "database", OldTarget: "t1", NewTarget: "t2"},
		{Component: "cache", Container: "process", Service: "cache", OldTarget: "t1", NewTarget: "t3"},
	}

	e := NewEngine(iface, targets, services, 2)
	ok := e.Migrate(context.Background(), moves, Options{Mode: BreadthFirst})
	require.False(t, ok)

	// The failing mapping's restore ran (and failed), but that never stops
	// the other mapping's restore from being attempted too (§4.7: no
	// rollback for state migration).
	assert.Contains(t, iface.calls["t2"], "restore")
	assert.Contains(t, iface.calls["t3"], "restore")
}
