package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchProfileReportsRepoint(t *testing.T) {
	dir := t.TempDir()
	target1 := filepath.Join(dir, "manifestA.xml")
	target2 := filepath.Join(dir, "manifestB.xml")
	require.NoError(t, os.WriteFile(target1, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(target2, []byte("b"), 0o644))

	link := filepath.Join(dir, "default")
	require.NoError(t, os.Symlink(target1, link))

	cmd := newWatchProfileCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	done := make(chan error, 1)
	go func() { done <- cmd.RunE(cmd, []string{link}) }()

	time.Sleep(50 * time.Millisecond)
	tmp := link + ".tmp"
	require.NoError(t, os.Symlink(target2, tmp))
	require.NoError(t, os.Rename(tmp, link))

	time.Sleep(200 * time.Millisecond)

	assert.Contains(t, buf.String(), "profile repointed")

	select {
	case err := <-done:
		t.Fatalf("watch-profile exited early: %v", err)
	default:
	}
}
