package supervisor

import (
	"fmt"

	"kioskd/supervisor/exec"
)

// reactor is the exit reactor goroutine. It wakes on SIGCHLD and drains
// every reapable child before going back to sleep: the kernel coalesces
// pending SIGCHLDs, so one wakeup can stand for several exits, or for none.
func (s *Supervisor) reactor() {
	for {
		select {
		case <-s.ctx.Done():
			return

		case <-s.sigCh:
			s.reapExited()
		}
	}
}

// reapExited reaps and classifies terminated children until none remain.
func (s *Supervisor) reapExited() {
	for {
		status, ok := s.reap()
		if !ok {
			return
		}

		s.handleExit(status)
	}
}

// handleExit routes one reaped exit status. Synchronous waiters come first,
// then the registry; a PID known to neither exited expectedly.
func (s *Supervisor) handleExit(status exec.ExitStatus) {
	s.mu.Lock()

	if ch, ok := s.waiters[status.PID]; ok {
		delete(s.waiters, status.PID)

		// The send happens under the lock so that anyone else holding it sees
		// the removal and the delivered status as one step. The channel is
		// buffered and owned by exactly one waiter, so this never blocks.
		ch <- status

		s.mu.Unlock()
		return
	}

	tracked, ok := s.tracked[status.PID]
	s.mu.Unlock()

	if !ok {
		// Untracked, or already removed by Terminate: expected.
		return
	}

	// The entry stays in the registry: it is informational only at this
	// point, and the escalation below does not return under normal
	// operation.
	s.j.Write(&EventProcessDied{
		PID:      status.PID,
		Command:  tracked.Command,
		ExitCode: status.Code,
	})

	// Escalation runs off the reactor goroutine: the user-presence query
	// runs who(1) through the runner, and that child's own exit has to come
	// back through this reactor.
	go s.escalate(fmt.Sprintf(
		"Tracked process %d (%s) terminated unexpectedly",
		status.PID, tracked.Command,
	))
}
