package procexec

import (
	"context"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIteratorReapsEveryItemExactlyOnce(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	var mu sync.Mutex
	completed := make(map[int]bool)

	ok := Iterator(context.Background(), items, 2, func(item int) (Handle, error) {
		cmd := exec.Command("true")
		return Start(cmd)
	}, func(item int, res Result) {
		mu.Lock()
		defer mu.Unlock()
		completed[item] = true
		assert.NoError(t, res.Err)
	})

	assert.True(t, ok)
	assert.Len(t, completed, len(items))
	for _, item := range items {
		assert.True(t, completed[item])
	}
}

func TestIteratorReportsFailureWithoutKillingOthers(t *testing.T) {
	items := []string{"ok", "fail", "ok2"}

	ok := Iterator(context.Background(), items, 0, func(item string) (Handle, error) {
		if item == "fail" {
			return Start(exec.Command("false"))
		}
		return Start(exec.Command("true"))
	}, func(item string, res Result) {
		if item == "fail" {
			assert.Error(t, res.Err)
		} else {
			assert.NoError(t, res.Err)
		}
	})

	assert.False(t, ok)
}

func TestIteratorStopsSpawningAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []int{1, 2, 3}
	var spawned int

	Iterator(ctx, items, 0, func(item int) (Handle, error) {
		spawned++
		return Start(exec.Command("true"))
	}, func(item int, res Result) {})

	assert.Equal(t, 0, spawned)
}

func TestCaptureLinesSplitsStdout(t *testing.T) {
	cmd := exec.Command("printf", "a\\nb\\nc\\n")
	lines, err := CaptureLines(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}
