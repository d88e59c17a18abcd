// Package exec provides an abstraction around package os' Process
// implementation for easier testing.
package exec

import (
	"os"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Shell is the shell used to interpret command strings.
var Shell = "/bin/sh"

// Process describes a command process. It exposes only the operations the
// supervisor needs; waiting is done centrally by the exit reactor, never on
// the process itself.
type Process interface {
	PID() int
	Signal(os.Signal) error
	Kill() error
}

// ExitStatus is a process' exit status as reported by the reaper.
type ExitStatus struct {
	PID  int
	Code int // -1 if killed by a signal
}

type process struct {
	*os.Process
}

var _ Process = process{}

// Subreap marks the calling process as a child subreaper so that
// grandchildren disowned by the shell are still reaped here instead of by
// init.
func Subreap() error {
	if err := unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0); err != nil {
		return errors.Wrap(err, "failed to set subreaper")
	}
	return nil
}

// StartShell starts the given command string under the shell, detached from
// the caller. The child gets its own process group, writes its output to the
// null device, and is killed by the kernel if this process dies.
func StartShell(command string) (Process, error) {
	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open null device")
	}
	defer null.Close()

	return start(command, []*os.File{null, null, null})
}

// StartCapture starts the given command string under the shell with its
// standard output and standard error combined into the returned pipe. The
// pipe reaches EOF once the child (and anything it forked onto the pipe)
// exits.
func StartCapture(command string) (Process, *os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create output pipe")
	}
	defer w.Close()

	p, err := start(command, []*os.File{nil, w, w})
	if err != nil {
		r.Close()
		return nil, nil, err
	}

	return p, r, nil
}

func start(command string, files []*os.File) (Process, error) {
	// Lock this goroutine to the OS thread for Pdeathsig.
	// See https://github.com/golang/go/issues/27505.
	runtime.LockOSThread()

	argv := []string{Shell, "-c", command}

	p, err := os.StartProcess(Shell, argv, &os.ProcAttr{
		Files: files,
		Sys: &syscall.SysProcAttr{
			// Linux-only: we need the child to die when we do, because it's
			// the next best thing we can do that doesn't involve reparenting
			// orphaned children magic.
			Pdeathsig: syscall.SIGTERM,
			Setpgid:   true,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to start %q", command)
	}

	return process{p}, nil
}

func (proc process) PID() int {
	return proc.Pid
}

// Kill sends SIGKILL to the child's whole process group, so viewers spawned
// through the shell die with the shell.
func (proc process) Kill() error {
	if err := unix.Kill(-proc.Pid, unix.SIGKILL); err == nil {
		return nil
	}
	return proc.Process.Kill()
}

// Reap reaps one terminated child without blocking. It returns false if no
// child is currently reapable. The caller must keep calling it until it
// returns false, since one SIGCHLD can stand for several exits.
func Reap() (ExitStatus, bool) {
	for {
		var status unix.WaitStatus

		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		switch {
		case pid > 0:
			code := status.ExitStatus()
			if status.Signaled() {
				code = -1
			}
			return ExitStatus{PID: pid, Code: code}, true

		case err == unix.EINTR:
			// Interrupted; retry.

		default:
			// pid == 0 or ECHILD: nothing left to reap.
			return ExitStatus{}, false
		}
	}
}
