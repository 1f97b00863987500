// Package scheduler implements the dependency-ordered traversal (§4.5) that
// turns a set of service mappings into an activation or deactivation order
// honoring depends_on edges (or their transpose), bounded by each target's
// core budget, one subprocess reaped at a time.
package scheduler

import (
	"context"

	"coordinator/internal/errs"
	"coordinator/internal/manifest"
	"coordinator/internal/procexec"
	"coordinator/internal/target"
)

// Direction selects which edge the traversal follows and which status
// transition it attempts.
type Direction int

const (
	Activate Direction = iota
	Deactivate
)

// SpawnFunc builds and starts the subprocess for one mapping transitioning
// to IN_PROGRESS, given its resolved target, assembled container
// environment, and the direction of the transition (so one Scheduler can
// serve both the deactivation and activation passes of a transition,
// §4.3, §4.11b).
type SpawnFunc func(m *manifest.ServiceMapping, t *manifest.Target, env []string, dir Direction) (procexec.Handle, error)

// Scheduler runs the C5 traversal over a fixed services/targets universe.
type Scheduler struct {
	// Services is the union of old and new services tables (§4.6): lookups
	// during both deactivation and activation must always resolve.
	Services map[string]*manifest.ManifestService
	Targets  map[string]*manifest.Target
	Spawn    SpawnFunc
}

type completion struct {
	pid int
	err error
}

// outcome is the traversal's return code (§4.5): DEACTIVATED/ACTIVATED
// collapse to outcomeDone here since that's what "skip, already terminal"
// means to a caller; IN_PROGRESS/ERROR/WAIT are distinguished because the
// first non-DONE outcome in a recursion wins.
type outcome int

const (
	outcomeDone outcome = iota
	outcomeInProgress
	outcomeWait
	outcomeError
)

// Run executes the outer driver loop (§4.5) over mappings in the given
// direction, resolving dependency edges against union (the full working
// set from manifest.UnifyServiceMappings). It returns true iff every
// mapping reached its terminal status with no ERROR.
//
// ctx cancellation (SIGINT, §4.6) stops new subprocesses from being
// spawned; already-running children are always awaited to completion.
func (s *Scheduler) Run(ctx context.Context, mappings []*manifest.ServiceMapping, union []*manifest.ServiceMapping, dir Direction) bool {
	pidTable := make(map[int]*manifest.ServiceMapping)
	reaped := make(chan completion)
	inFlight := 0
	sawError := false

	terminalStatus := func() manifest.ServiceMappingStatus {
		if dir == Activate {
			return manifest.StatusActivated
		}
		return manifest.StatusDeactivated
	}()

	allTerminal := func() bool {
		for _, m := range mappings {
			if m.Status != terminalStatus && m.Status != manifest.StatusError {
				return false
			}
		}
		return true
	}

	spawnOne := func(m *manifest.ServiceMapping, t *manifest.Target) outcome {
		env := target.ContainerEnv(t, m.Container)
		h, err := s.Spawn(m, t, env, dir)
		if err != nil {
			target.ReleaseCore(t)
			m.Status = manifest.StatusError
			return outcomeError
		}
		pidTable[h.Pid] = m
		inFlight++
		go func() {
			_, waitErr := h.Wait()
			reaped <- completion{pid: h.Pid, err: waitErr}
		}()
		return outcomeInProgress
	}

	for {
		progressed := false
		for _, m := range mappings {
			switch s.traverse(ctx, m, dir, union, spawnOne) {
			case outcomeInProgress:
				progressed = true
			case outcomeError:
				sawError = true
			}
		}

		if allTerminal() {
			break
		}
		if ctx.Err() != nil && !progressed && inFlight == 0 {
			// nothing left can make progress and cancellation was requested
			break
		}

		c := <-reaped
		inFlight--
		m := pidTable[c.pid]
		delete(pidTable, c.pid)
		if t, ok := s.Targets[m.Target]; ok {
			target.ReleaseCore(t)
		}
		if c.err != nil {
			m.Status = manifest.StatusError
			sawError = true
		} else {
			m.Status = terminalStatus
		}
	}

	return !sawError
}

// traverse implements one recursive step of §4.5: resolve this mapping's
// dependency edges (forward for activation, reverse for deactivation),
// and, iff all of them are terminal, attempt the IN_PROGRESS transition.
func (s *Scheduler) traverse(ctx context.Context, m *manifest.ServiceMapping, dir Direction, union []*manifest.ServiceMapping, spawnOne func(*manifest.ServiceMapping, *manifest.Target) outcome) outcome {
	terminalStatus := manifest.StatusDeactivated
	if dir == Activate {
		terminalStatus = manifest.StatusActivated
	}

	switch m.Status {
	case terminalStatus:
		return outcomeDone
	case manifest.StatusError:
		return outcomeError
	case manifest.StatusInProgress:
		return outcomeInProgress
	}

	deps, err := s.resolveDeps(m, dir, union)
	if err != nil {
		m.Status = manifest.StatusError
		return outcomeError
	}

	for _, dep := range deps {
		switch s.traverse(ctx, dep, dir, union, spawnOne) {
		case outcomeError:
			return outcomeError
		case outcomeWait, outcomeInProgress:
			return outcomeWait
		}
	}

	if ctx.Err() != nil {
		return outcomeWait
	}

	t, ok := s.Targets[m.Target]
	if !ok {
		if dir == Deactivate {
			// deletion was unreachable: short-circuit to DEACTIVATED (§4.5).
			m.Status = manifest.StatusDeactivated
			return outcomeDone
		}
		m.Status = manifest.StatusError
		return outcomeError
	}

	if !target.RequestCore(t) {
		return outcomeWait
	}

	m.Status = manifest.StatusInProgress
	return spawnOne(m, t)
}

// resolveDeps returns the mappings that must be terminal before m can
// transition: forward depends_on edges for activation, or the (computed
// per call, discarded after) reverse edges for deactivation.
func (s *Scheduler) resolveDeps(m *manifest.ServiceMapping, dir Direction, union []*manifest.ServiceMapping) ([]*manifest.ServiceMapping, error) {
	if dir == Activate {
		svc, ok := s.Services[m.Service]
		if !ok {
			return nil, &errs.SchedulerError{Reason: "unknown service " + m.Service}
		}
		deps := make([]*manifest.ServiceMapping, 0, len(svc.DependsOn))
		for _, d := range svc.DependsOn {
			key := manifest.ServiceMappingKey{Target: d.Target, Container: d.Container, Service: d.Service}
			dm, ok := manifest.FindServiceMappingInSlice(union, key)
			if !ok {
				return nil, &errs.SchedulerError{Reason: "dependency mapping not found in union: " + d.Service}
			}
			deps = append(deps, dm)
		}
		return deps, nil
	}

	var reverse []*manifest.ServiceMapping
	for _, candidate := range union {
		if candidate == m {
			continue
		}
		svc, ok := s.Services[candidate.Service]
		if !ok {
			continue
		}
		for _, d := range svc.DependsOn {
			if d.Target == m.Target && d.Container == m.Container && d.Service == m.Service {
				reverse = append(reverse, candidate)
				break
			}
		}
	}
	return reverse, nil
}
