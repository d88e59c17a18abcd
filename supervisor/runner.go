package supervisor

import (
	"io"

	"github.com/pkg/errors"

	"kioskd/supervisor/exec"
)

// Output runs the given command string synchronously and returns its
// combined output once it exits. It imposes no deadline of its own; callers
// that need one use RunWithTimeout.
func (s *Supervisor) Output(command string) (string, error) {
	out, status, err := s.run(command)
	if err != nil {
		return "", err
	}

	if status.Code != 0 {
		return out, errors.Errorf("command %q exited with status %d", command, status.Code)
	}

	return out, nil
}

// run starts a capture child, registers its rendezvous channel with the exit
// reactor, and blocks until the reactor reports the exit.
func (s *Supervisor) run(command string) (string, exec.ExitStatus, error) {
	// Start and register under the lock so the reactor cannot reap the child
	// before its waiter exists.
	s.mu.Lock()

	proc, pipe, err := s.startCapture(command)
	if err != nil {
		s.mu.Unlock()
		return "", exec.ExitStatus{}, errors.Wrapf(err, "failed to run %q", command)
	}

	waitCh := make(chan exec.ExitStatus, 1)
	s.waiters[proc.PID()] = waitCh

	s.mu.Unlock()

	// The pipe reaches EOF once the child exits and the kernel drops the
	// write end, so reading it dry cannot outlive the exit by much.
	output, _ := io.ReadAll(pipe)
	pipe.Close()

	status := <-waitCh

	return string(output), status, nil
}
