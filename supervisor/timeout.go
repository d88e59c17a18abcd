package supervisor

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"kioskd/supervisor/exec"
)

// ErrTimedCommandActive is returned when RunWithTimeout is called while
// another timed command is still armed. Only one timed command may be
// outstanding; a second one is caller misuse, not a device fault.
var ErrTimedCommandActive = errors.New("a timed command is already armed")

// timedCommand is the state of the single in-flight timed command.
type timedCommand struct {
	command string
	timeout time.Duration
}

// RunWithTimeout runs the given command string and returns its combined
// output, unless the deadline elapses first, in which case the failure
// escalates into a reboot. A command that fails to start or exits with a
// nonzero status before the deadline escalates too: the commands run through
// here are startup bring-up commands that may either hang or crash, and both
// failure modes are equally unrecoverable.
//
// If timeout is zero or negative, DefaultCommandTimeout applies.
func (s *Supervisor) RunWithTimeout(command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	// Arm, start and register the waiter in one critical section: the armed
	// check must be atomic with arming, and the child must not be reapable
	// before its rendezvous channel exists.
	s.mu.Lock()

	if s.timed != nil {
		s.mu.Unlock()
		return "", ErrTimedCommandActive
	}

	proc, pipe, err := s.startCapture(command)
	if err != nil {
		s.mu.Unlock()
		return "", s.escalate(fmt.Sprintf("Failed to start %q: %v", command, err))
	}

	s.timed = &timedCommand{command: command, timeout: timeout}

	waitCh := make(chan exec.ExitStatus, 1)
	s.waiters[proc.PID()] = waitCh

	s.mu.Unlock()

	outCh := make(chan string, 1)
	go func() {
		output, _ := io.ReadAll(pipe)
		pipe.Close()
		outCh <- string(output)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case status := <-waitCh:
		return s.timedDone(command, status, outCh)

	case <-timer.C:
		// The deadline fired, but a completion may have been reaped at the
		// same instant. The reactor delivers the status while holding mu, so
		// rechecking and disarming inside one critical section makes this
		// race resolve cleanly in favor of "already completed": either the
		// status is already in the channel, or the waiter is still ours to
		// remove.
		s.mu.Lock()

		select {
		case status := <-waitCh:
			s.mu.Unlock()
			return s.timedDone(command, status, outCh)
		default:
		}

		// Deadline elapsed with the command still running. Drop the waiter
		// so the eventual exit is ignored, then escalate; there is no soft
		// recovery for a hung bring-up command.
		s.timed = nil
		delete(s.waiters, proc.PID())

		s.mu.Unlock()

		return "", s.escalate(fmt.Sprintf(
			"Timeout (%d secs) executing %q", int(timeout.Seconds()), command,
		))
	}
}

// timedDone disarms the deadline and reports the completed command's
// outcome. A nonzero exit before the deadline is as fatal as a hang.
func (s *Supervisor) timedDone(command string, status exec.ExitStatus, outCh <-chan string) (string, error) {
	s.mu.Lock()
	s.timed = nil
	s.mu.Unlock()

	output := <-outCh

	if status.Code != 0 {
		return output, s.escalate(fmt.Sprintf(
			"Command %q exited with status %d", command, status.Code,
		))
	}

	return output, nil
}
