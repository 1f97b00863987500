// Package errs defines the typed error kinds the coordinator distinguishes
// internally (§7 of the specification): parse errors, validation errors,
// subprocess errors, scheduler errors and "reap failed" errors. ParseError,
// SubprocessError and StateUnknownError wrap their underlying cause so
// callers can still errors.Is/As through to it; ValidationError and
// SchedulerError carry only a reason string.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by commands that are deliberately left
// unimplemented against a real target, e.g. capture-infra (spec.md §1's
// package-manager-back-end exclusion).
var ErrNotImplemented = errors.New("not implemented")

// ParseError is returned when a manifest document is malformed or missing a
// required attribute.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError is returned when a parsed manifest violates one of the
// structural invariants in §3 (dangling reference, duplicate key, missing
// required field).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation error: " + e.Reason }

// SchedulerError is returned when the scheduler cannot resolve a mapping —
// a mapping whose service is not in the union services table, or a
// dependency with no matching mapping in the union working set.
type SchedulerError struct {
	Reason string
}

func (e *SchedulerError) Error() string { return "scheduler error: " + e.Reason }

// SubprocessError wraps a non-zero exit or failed spawn of the
// client-interface for one mapping and verb. Rendering it follows the
// "[target: key]: Cannot ..." convention from §7.
type SubprocessError struct {
	Target string
	Verb   string
	Key    string
	Err    error
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("[target: %s]: Cannot %s service with key: %s: %v", e.Target, e.Verb, e.Key, e.Err)
}

func (e *SubprocessError) Unwrap() error { return e.Err }

// StateUnknownError is returned when a spawned child's exit status could not
// be retrieved (the reap itself failed).
type StateUnknownError struct {
	Pid int
	Err error
}

func (e *StateUnknownError) Error() string {
	return fmt.Sprintf("state unknown for pid %d: %v", e.Pid, e.Err)
}

func (e *StateUnknownError) Unwrap() error { return e.Err }
