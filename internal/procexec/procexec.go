// Package procexec implements the coordinator's one reusable concurrency
// primitive (§4.4): fan out one subprocess per item, bound how many run at
// once, and call a completion callback as each one is reaped; callbacks may
// run concurrently. The locking phase and target-profile commit are built on
// Iterator; the scheduler runs its own reap loop on Start handles, and
// closure transfer runs sequentially.
package procexec

import (
	"bufio"
	"context"
	"os/exec"
	"sync"
)

// Handle is what a spawn function returns for one item: the subprocess has
// already been started (Pid is valid), and Wait reaps it, returning
// captured stdout lines (nil if the caller wasn't capturing output) and the
// wait error, if any.
type Handle struct {
	Pid  int
	Wait func() ([]string, error)
}

// Result is delivered to complete once an item's subprocess has been
// reaped.
type Result struct {
	Err    error
	Output []string
}

// Iterator runs spawn for every item in items, never letting more than
// concurrency run at once (0 means unbounded), and calls complete exactly
// once per item after that item's subprocess has been reaped. It returns
// once every spawned child has been reaped. The return value is true iff
// every Result had Err == nil.
//
// ctx is checked before spawning each new item: once it is cancelled (the
// coordinator's SIGINT handling, §4.6) no further items are spawned, but
// already-running children are still awaited, never killed (§4.4).
func Iterator[T any](ctx context.Context, items []T, concurrency int, spawn func(item T) (Handle, error), complete func(item T, res Result)) bool {
	var wg sync.WaitGroup
	var sem chan struct{}
	if concurrency > 0 {
		sem = make(chan struct{}, concurrency)
	}

	var mu sync.Mutex
	success := true
	markFailed := func() {
		mu.Lock()
		success = false
		mu.Unlock()
	}

	for _, item := range items {
		if ctx.Err() != nil {
			break // stop spawning; still fall through to wg.Wait below
		}

		if sem != nil {
			sem <- struct{}{}
		}

		h, err := spawn(item)
		if err != nil {
			if sem != nil {
				<-sem
			}
			markFailed()
			complete(item, Result{Err: err})
			continue
		}

		wg.Add(1)
		go func(item T, h Handle) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			lines, waitErr := h.Wait()
			if waitErr != nil {
				markFailed()
			}
			complete(item, Result{Err: waitErr, Output: lines})
		}(item, h)
	}

	wg.Wait()
	return success
}

// StartCapturing starts cmd with its stdout piped, returning a Handle whose
// Wait reaps the process and returns its stdout split on line feeds. Used
// by client-interface verbs that need captured output (§4.11b).
func StartCapturing(cmd *exec.Cmd) (Handle, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Handle{}, err
	}
	if err := cmd.Start(); err != nil {
		return Handle{}, err
	}

	return Handle{
		Pid: cmd.Process.Pid,
		Wait: func() ([]string, error) {
			var lines []string
			scanner := bufio.NewScanner(stdout)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			waitErr := cmd.Wait()
			if waitErr != nil {
				return lines, waitErr
			}
			return lines, scanner.Err()
		},
	}, nil
}

// Start starts cmd without capturing output, returning a Handle whose Wait
// just reaps the process and reports its exit status.
func Start(cmd *exec.Cmd) (Handle, error) {
	if err := cmd.Start(); err != nil {
		return Handle{}, err
	}
	return Handle{
		Pid: cmd.Process.Pid,
		Wait: func() ([]string, error) {
			return nil, cmd.Wait()
		},
	}, nil
}

// CaptureLines runs cmd to completion synchronously and returns its stdout
// split on line feeds. Used by the handful of client-interface verbs that
// need synchronous output (query-requisites, print-invalid) rather than
// fire-and-forget status.
func CaptureLines(cmd *exec.Cmd) ([]string, error) {
	h, err := StartCapturing(cmd)
	if err != nil {
		return nil, err
	}
	return h.Wait()
}
