package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAndLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, LevelWarn)

	Info("scheduler", "this should not appear")
	require.Empty(t, buf.String())

	Warn("scheduler", "this should appear")
	assert.Contains(t, buf.String(), "this should appear")
	assert.Contains(t, buf.String(), "subsystem=scheduler")
}

func TestErrorIncludesErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, LevelDebug)

	Error("transition", assertErr{"boom"}, "activation failed")
	out := buf.String()
	assert.Contains(t, out, "activation failed")
	assert.Contains(t, out, "error=boom")
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		Level(99):  "UNKNOWN",
	}
	for level, want := range cases {
		assert.Equal(t, want, level.String())
	}
}

func TestCoordinatorAndTargetLinesAreFormatted(t *testing.T) {
	// Coordinator/Target write straight to os.Stdout per the wire contract,
	// so os.Stdout is swapped for a pipe while they run.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	Coordinator("Executing activation of services")
	Target("T1", "activate %s", "webapp")
	os.Stdout = orig
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "[coordinator]: "))
	assert.True(t, strings.HasPrefix(lines[1], "[target: T1]: "))
}
