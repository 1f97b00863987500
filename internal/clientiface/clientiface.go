// Package clientiface adapts the per-target client-interface executable
// contract (§6) to Go: `<interface> --target <key> <verb> [flags] [args]`,
// with container-property KEY=VALUE pairs on the child's environment and
// exit code 0 meaning success. Every client-interface invocation goes
// through this package; the store back end (internal/storebackend) runs its
// own store binary directly.
package clientiface

import (
	"os/exec"
	"strconv"
	"strings"

	"coordinator/internal/procexec"
	"coordinator/pkg/logging"
	coordstrings "coordinator/pkg/strings"
)

// Interface wraps the configured client-interface binary path.
type Interface struct {
	Binary string
}

func New(binary string) *Interface {
	return &Interface{Binary: binary}
}

func (i *Interface) command(targetKey string, env []string, args ...string) *exec.Cmd {
	fullArgs := append([]string{"--target", targetKey}, args...)
	cmd := exec.Command(i.Binary, fullArgs...)
	cmd.Env = append(cmd.Environ(), env...)
	return cmd
}

// Start builds and starts the subprocess for verb against targetKey with
// the given container environment, returning a procexec.Handle the
// scheduler or locking phase can wait on. This is the "spawn plan" (§4.11b)
// consumed by C4/C5. Every invocation and failure is traced through
// pkg/logging's "[target: key]: ..." convention (§6/§7).
func (i *Interface) Start(targetKey string, env []string, verb string, args ...string) (procexec.Handle, error) {
	desc := strings.Join(append([]string{verb}, args...), " ")
	logging.Target(targetKey, "%s", desc)

	cmd := i.command(targetKey, env, append([]string{verb}, args...)...)
	h, err := procexec.Start(cmd)
	if err != nil {
		logging.TargetError(targetKey, "start %s: %v", coordstrings.TruncateDescription(desc, coordstrings.DefaultDescriptionMaxLen), err)
		return h, err
	}

	wait := h.Wait
	h.Wait = func() ([]string, error) {
		lines, waitErr := wait()
		if waitErr != nil {
			logging.TargetError(targetKey, "%s: %v", coordstrings.TruncateDescription(desc, coordstrings.DefaultDescriptionMaxLen), waitErr)
		}
		return lines, waitErr
	}
	return h, nil
}

// startCapturing is Start's capturing counterpart: same spawn-plan logging
// and failure tracing, but the returned Handle's Wait captures stdout
// instead of discarding it.
func (i *Interface) startCapturing(targetKey string, env []string, verb string, args ...string) (procexec.Handle, error) {
	desc := strings.Join(append([]string{verb}, args...), " ")
	logging.Target(targetKey, "%s", desc)

	cmd := i.command(targetKey, env, append([]string{verb}, args...)...)
	h, err := procexec.StartCapturing(cmd)
	if err != nil {
		logging.TargetError(targetKey, "start %s: %v", coordstrings.TruncateDescription(desc, coordstrings.DefaultDescriptionMaxLen), err)
		return h, err
	}

	wait := h.Wait
	h.Wait = func() ([]string, error) {
		lines, waitErr := wait()
		if waitErr != nil {
			logging.TargetError(targetKey, "%s: %v", coordstrings.TruncateDescription(desc, coordstrings.DefaultDescriptionMaxLen), waitErr)
		}
		return lines, waitErr
	}
	return h, nil
}

// Activate starts the "activate" verb for one mapping.
func (i *Interface) Activate(targetKey, mappingType string, env []string) (procexec.Handle, error) {
	return i.Start(targetKey, env, "activate", mappingType)
}

// Deactivate starts the "deactivate" verb for one mapping.
func (i *Interface) Deactivate(targetKey, mappingType string, env []string) (procexec.Handle, error) {
	return i.Start(targetKey, env, "deactivate", mappingType)
}

// Snapshot starts the "snapshot" verb, capturing its stdout: a
// client-interface that supports generation bookkeeping prints the
// resulting snapshot's generation number and Unix timestamp as a single
// line, which the migration engine parses to drive clean-snapshots and
// ALL-vs-latest transfer decisions (§3 "Generation metadata").
func (i *Interface) Snapshot(targetKey, mappingType string, env []string) (procexec.Handle, error) {
	return i.startCapturing(targetKey, env, "snapshot", mappingType)
}

// Restore starts the "restore" verb.
func (i *Interface) Restore(targetKey, mappingType string, env []string) (procexec.Handle, error) {
	return i.Start(targetKey, env, "restore", mappingType)
}

// DeleteState starts the "delete-state" verb.
func (i *Interface) DeleteState(targetKey, mappingType string, env []string) (procexec.Handle, error) {
	return i.Start(targetKey, env, "delete-state", mappingType)
}

// CleanSnapshots starts "clean-snapshots --keep N".
func (i *Interface) CleanSnapshots(targetKey string, keep int, env []string) (procexec.Handle, error) {
	return i.Start(targetKey, env, "clean-snapshots", "--keep", strconv.Itoa(keep))
}

// CopySnapshotsTo starts "copy-snapshots-to" for transferring snapshots to
// targetKey. When all is true, every generation is transferred; otherwise,
// if generation is known (> 0), only that generation is sent via
// "--generation N" (§3 "Generation metadata"), and if it isn't, the
// client-interface falls back to its own notion of "latest".
func (i *Interface) CopySnapshotsTo(targetKey string, env []string, all bool, generation int) (procexec.Handle, error) {
	args := []string{"copy-snapshots-to"}
	if all {
		args = append(args, "--all")
	} else if generation > 0 {
		args = append(args, "--generation", strconv.Itoa(generation))
	}
	return i.Start(targetKey, env, args[0], args[1:]...)
}

// CopySnapshotsFrom starts "copy-snapshots-from" for pulling snapshots from
// targetKey.
func (i *Interface) CopySnapshotsFrom(targetKey string, env []string, all bool) (procexec.Handle, error) {
	args := []string{"copy-snapshots-from"}
	if all {
		args = append(args, "--all")
	}
	return i.Start(targetKey, env, args[0], args[1:]...)
}

// Lock starts the "lock" verb for the coordinator profile on targetKey.
func (i *Interface) Lock(targetKey, profile string) (procexec.Handle, error) {
	return i.Start(targetKey, nil, "lock", "--profile", profile)
}

// Unlock starts the "unlock" verb.
func (i *Interface) Unlock(targetKey, profile string) (procexec.Handle, error) {
	return i.Start(targetKey, nil, "unlock", "--profile", profile)
}

// SetProfile starts "set --profile P --path S".
func (i *Interface) SetProfile(targetKey, profile, storePath string) (procexec.Handle, error) {
	return i.Start(targetKey, nil, "set", "--profile", profile, "--path", storePath)
}

// captureLines runs the given verb synchronously, logging it and any
// failure the same way Start does for spawn-and-wait calls.
func (i *Interface) captureLines(targetKey, verb string, args ...string) ([]string, error) {
	desc := strings.Join(append([]string{verb}, args...), " ")
	logging.Target(targetKey, "%s", desc)
	lines, err := procexec.CaptureLines(i.command(targetKey, nil, append([]string{verb}, args...)...))
	if err != nil {
		logging.TargetError(targetKey, "%s: %v", coordstrings.TruncateDescription(desc, coordstrings.DefaultDescriptionMaxLen), err)
	}
	return lines, err
}

// CaptureConfig runs "capture-config" synchronously and returns its
// captured stdout lines. No command calls it: capture-infra is a stub that
// returns ErrNotImplemented.
func (i *Interface) CaptureConfig(targetKey string) ([]string, error) {
	return i.captureLines(targetKey, "capture-config")
}

// QueryRequisites runs "query-requisites" synchronously for the given
// store paths, returning the requisite closure as captured lines.
func (i *Interface) QueryRequisites(targetKey string, paths []string) ([]string, error) {
	return i.captureLines(targetKey, "query-requisites", paths...)
}

// PrintInvalid runs "print-invalid" synchronously for the given store
// paths, returning the subset the target considers invalid (missing).
func (i *Interface) PrintInvalid(targetKey string, paths []string) ([]string, error) {
	return i.captureLines(targetKey, "print-invalid", paths...)
}

// Import starts "import [--localfile|--remotefile] F".
func (i *Interface) Import(targetKey, flag, file string) (procexec.Handle, error) {
	return i.Start(targetKey, nil, "import", flag, file)
}

// ImportLocalFile runs "import --localfile F" synchronously, for the
// closure helpers (§4.11), which need the import to finish before
// continuing rather than a fire-and-forget spawn plan.
func (i *Interface) ImportLocalFile(targetKey, path string) error {
	h, err := i.Import(targetKey, "--localfile", path)
	if err != nil {
		return err
	}
	_, err = h.Wait()
	return err
}

// Export starts "export --remotefile".
func (i *Interface) Export(targetKey string) (procexec.Handle, error) {
	return i.Start(targetKey, nil, "export", "--remotefile")
}

// ExportRemoteFile runs "export --remotefile" synchronously and returns the
// remote temp file path it printed on stdout, for the closure helpers
// (§4.11) to fetch and import locally.
func (i *Interface) ExportRemoteFile(targetKey string) (string, error) {
	lines, err := i.captureLines(targetKey, "export", "--remotefile")
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

// CollectGarbage starts "collect-garbage [-d]".
func (i *Interface) CollectGarbage(targetKey string, deleteOld bool) (procexec.Handle, error) {
	if deleteOld {
		return i.Start(targetKey, nil, "collect-garbage", "-d")
	}
	return i.Start(targetKey, nil, "collect-garbage")
}
