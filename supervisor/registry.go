package supervisor

import (
	"github.com/pkg/errors"
)

// ErrNotTracked is returned by Terminate when the given PID has no registry
// entry. It means the caller's bookkeeping is wrong, not that the device is
// unhealthy, so it is surfaced instead of escalated.
var ErrNotTracked = errors.New("process not tracked")

// Launch starts the given command string in the background and enters it
// into the registry. It never waits on the child; the returned PID can later
// be passed to Terminate.
func (s *Supervisor) Launch(command string) (int, error) {
	// Start under the lock: the registry entry must exist before the reactor
	// can possibly observe the exit, or an instantly-dying child would be
	// misclassified as expected.
	s.mu.Lock()

	proc, err := s.start(command)
	if err != nil {
		s.mu.Unlock()
		return 0, errors.Wrapf(err, "failed to launch %q", command)
	}

	pid := proc.PID()
	s.tracked[pid] = &TrackedProcess{
		PID:     pid,
		Command: command,
		proc:    proc,
	}

	s.mu.Unlock()

	s.j.Write(&EventProcessStarted{PID: pid, Command: command})

	return pid, nil
}

// Terminate kills the tracked process with the given PID. The registry entry
// is removed before the kill signal is sent; that ordering is what lets the
// exit reactor tell an intentional stop from a crash.
func (s *Supervisor) Terminate(pid int) error {
	s.mu.Lock()

	tracked, ok := s.tracked[pid]
	if !ok {
		s.mu.Unlock()
		return errors.Wrapf(ErrNotTracked, "pid %d", pid)
	}

	delete(s.tracked, pid)
	s.mu.Unlock()

	s.j.Write(&EventProcessStopping{PID: pid, Command: tracked.Command})

	if err := tracked.proc.Kill(); err != nil {
		s.j.Write(&EventWarning{
			Component: "registry",
			Error:     errors.Wrapf(err, "failed to kill pid %d", pid).Error(),
		})
	}

	return nil
}

// TerminateAll terminates every tracked process, in no particular order.
func (s *Supervisor) TerminateAll() {
	s.mu.Lock()
	pids := make([]int, 0, len(s.tracked))
	for pid := range s.tracked {
		pids = append(pids, pid)
	}
	s.mu.Unlock()

	for _, pid := range pids {
		// A concurrent Terminate may have beaten us to an entry; that's not
		// the caller-misuse case, so swallow it.
		if err := s.Terminate(pid); err != nil && !errors.Is(err, ErrNotTracked) {
			s.j.Write(&EventWarning{
				Component: "registry",
				Error:     err.Error(),
			})
		}
	}
}
