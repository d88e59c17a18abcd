// Package supervisor is the core of the kioskd daemon: it runs risky
// initialization commands under a hard deadline, launches and tracks the
// background viewer processes, reacts to child exits, and escalates any
// fatal condition into a deferred-or-immediate device reboot.
//
// Mechanism of Operation
//
// Every child of the daemon, whether launched in the background with Launch
// or synchronously with Output and RunWithTimeout, is reaped in one place:
// the exit reactor, a goroutine woken by SIGCHLD that drains reapable
// children in a loop. Synchronous callers register a per-PID rendezvous
// channel before their child can possibly exit, and the reactor routes the
// exit status back to them. A reaped PID with neither a rendezvous channel
// nor a registry entry is an expected exit and is ignored.
//
// Terminate removes the registry entry before it sends the kill signal, so
// that when the exit notification arrives the reactor finds nothing and
// correctly classifies the exit as intentional. A tracked PID that the
// reactor does find in the registry died behind the supervisor's back, which
// on an unattended field device is unrecoverable: the supervisor escalates.
//
// Escalation announces the failure through every configured journal sink,
// then reboots the device, unless blocking users are logged in, in which
// case it polls until they leave and gives a final grace period for an
// operator to reconnect before pulling the trigger.
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"kioskd/supervisor/exec"
)

// Defaults for the escalation timing knobs and the timed command deadline.
var (
	DefaultPollInterval   = 10 * time.Second
	DefaultGracePeriod    = 60 * time.Second
	DefaultCommandTimeout = 60 * time.Second
	DefaultRebootCommand  = "sudo reboot"
)

// UserCounter reports the number of interactive sessions. If remoteOnly is
// true, only sessions with a remote origin (SSH and the like) are counted.
// Session enumeration itself lives outside this package.
type UserCounter interface {
	CountInteractiveUsers(remoteOnly bool) (int, error)
}

// TrackedProcess is a background process launched through Launch that the
// supervisor remembers so it can be terminated later.
type TrackedProcess struct {
	PID     int
	Command string

	proc exec.Process
}

// Supervisor owns the tracked-process registry, the single in-flight timed
// command, and the reboot escalation policy. Construct exactly one per
// process with New and share it by pointer.
type Supervisor struct {
	// Escalation knobs. Set them before Start; they are not read until an
	// escalation begins.
	Policy        BlockingPolicy
	PollInterval  time.Duration
	GracePeriod   time.Duration
	RebootCommand string

	// Users reports blocking sessions. A nil Users never blocks a reboot.
	Users UserCounter

	j   Journaler
	ctx context.Context

	sigCh chan os.Signal

	// Test seams; real implementations from package exec by default.
	start        func(command string) (exec.Process, error)
	startCapture func(command string) (exec.Process, *os.File, error)
	reap         func() (exec.ExitStatus, bool)
	reboot       func() error
	subreap      func() error

	// mu guards everything below. The reactor runs concurrently with the
	// main flow, so registry mutations, waiter registration and the timed
	// command state all share this one critical section.
	mu      sync.Mutex
	tracked map[int]*TrackedProcess
	waiters map[int]chan exec.ExitStatus
	timed   *timedCommand
}

// New creates a supervisor. Start must be called before any child exits can
// be observed; the reactor stops when the context is canceled.
func New(ctx context.Context, j Journaler) *Supervisor {
	s := &Supervisor{
		Policy:        BlockAnyUsers,
		PollInterval:  DefaultPollInterval,
		GracePeriod:   DefaultGracePeriod,
		RebootCommand: DefaultRebootCommand,

		j:   j,
		ctx: ctx,

		sigCh: make(chan os.Signal, 1),

		start:        exec.StartShell,
		startCapture: exec.StartCapture,
		reap:         exec.Reap,
		subreap:      exec.Subreap,

		tracked: make(map[int]*TrackedProcess),
		waiters: make(map[int]chan exec.ExitStatus),
	}

	s.reboot = s.rebootHost

	return s
}

// Start registers the SIGCHLD subscription and starts the exit reactor.
func (s *Supervisor) Start() error {
	if err := s.subreap(); err != nil {
		return err
	}

	signal.Notify(s.sigCh, unix.SIGCHLD)
	go s.reactor()

	return nil
}
