package clientiface

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterface writes a tiny shell script that echoes its own argv so
// tests can assert on exactly what clientiface invoked, without needing a
// real client-interface binary.
func fakeInterface(t *testing.T) *Interface {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-client-interface")
	script := "#!/bin/sh\necho \"$@\"\nexit 0\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return New(path)
}

// argCheckingInterface writes a script that exits non-zero unless its argv,
// joined by spaces, equals want, so a handle's Wait error reports a wrong
// invocation even for verbs whose stdout Start discards.
func argCheckingInterface(t *testing.T, want string) *Interface {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-client-interface")
	script := "#!/bin/sh\n[ \"$*\" = '" + want + "' ]\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return New(path)
}

func TestActivateInvokesExpectedArgs(t *testing.T) {
	iface := argCheckingInterface(t, "--target test1 activate process")
	h, err := iface.Activate("test1", "process", []string{"PORT=8080"})
	require.NoError(t, err)
	_, err = h.Wait()
	assert.NoError(t, err)
}

func TestCleanSnapshotsPassesKeepCount(t *testing.T) {
	iface := argCheckingInterface(t, "--target test1 clean-snapshots --keep 3")
	h, err := iface.CleanSnapshots("test1", 3, nil)
	require.NoError(t, err)
	lines, err := h.Wait()
	require.NoError(t, err)
	require.Len(t, lines, 0) // Start() doesn't capture; the script's exit status checks the argv
}

func TestSnapshotCapturesGenerationLine(t *testing.T) {
	iface := fakeInterface(t)
	h, err := iface.Snapshot("test1", "process", nil)
	require.NoError(t, err)
	lines, err := h.Wait()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "process")
}

func TestQueryRequisitesCapturesStdout(t *testing.T) {
	iface := fakeInterface(t)
	lines, err := iface.QueryRequisites("test1", []string{"/nix/store/a", "/nix/store/b"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "/nix/store/a")
	assert.Contains(t, lines[0], "/nix/store/b")
}

func TestCopySnapshotsToPassesAllFlag(t *testing.T) {
	iface := argCheckingInterface(t, "--target test1 copy-snapshots-to --all")
	h, err := iface.CopySnapshotsTo("test1", nil, true, 0)
	require.NoError(t, err)
	_, err = h.Wait()
	require.NoError(t, err)
}

func TestCommandBuildsTargetFlagAndEnv(t *testing.T) {
	iface := fakeInterface(t)
	cmd := iface.command("test1", []string{"FOO=bar"}, "activate", "process")
	assert.Equal(t, []string{iface.Binary, "--target", "test1", "activate", "process"}, cmd.Args)
	found := false
	for _, e := range cmd.Env {
		if strings.HasPrefix(e, "FOO=bar") {
			found = true
		}
	}
	assert.True(t, found)
}
