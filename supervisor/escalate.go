package supervisor

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"kioskd/supervisor/exec"
)

// BlockingPolicy selects which interactive sessions defer a pending reboot.
type BlockingPolicy string

const (
	// BlockAnyUsers defers while any interactive session exists.
	BlockAnyUsers BlockingPolicy = "any"
	// BlockSSHUsers defers only for sessions with a remote origin.
	BlockSSHUsers BlockingPolicy = "ssh"
	// BlockNoUsers never defers.
	BlockNoUsers BlockingPolicy = "none"
)

// ErrEscalated reports that a fatal condition went through the full
// escalation sequence. Under a real rebooter the reboot command replaces the
// host state and this error is never observed; it exists so that fakes in
// tests, and a reboot command that itself fails, hand a terminal error back
// to the caller.
var ErrEscalated = errors.New("fatal condition escalated to reboot")

// escalate is the single entry point for every fatal condition. It emits the
// message through all sinks, then reboots the device once no blocking users
// remain: while users are logged in it polls until they leave, and once
// clear it waits a final grace period and re-checks, since the grace period
// is long enough for an operator to notice trouble and log in.
//
// Escalation is deliberately unresponsive to everything except the passage
// of time and the user-presence check; it is a last-resort safety path.
func (s *Supervisor) escalate(message string) error {
	s.j.Write(&EventEscalation{Message: message})

	for {
		users := s.blockingUsers()

		if users > 0 {
			s.j.Write(&EventRebootDeferred{Users: users})

			for users > 0 {
				time.Sleep(s.PollInterval)
				users = s.blockingUsers()
			}

			// The operator may have just logged out without fixing
			// anything, so the pending reboot comes straight back.
			s.j.Write(&EventRebootReinstated{})
			continue
		}

		s.j.Write(&EventRebootArmed{GraceSeconds: int(s.GracePeriod.Seconds())})
		time.Sleep(s.GracePeriod)

		// Someone may have logged in during the grace period; if so, go
		// back to deferring.
		if s.blockingUsers() > 0 {
			continue
		}

		break
	}

	s.j.Write(&EventRebooting{})

	if err := s.reboot(); err != nil {
		s.j.Write(&EventWarning{
			Component: "escalation",
			Error:     errors.Wrap(err, "reboot failed").Error(),
		})
	}

	return ErrEscalated
}

// blockingUsers returns the number of sessions that currently defer a
// reboot, filtered by the configured policy. A failing query counts as
// zero: an unattended device with broken session enumeration must still be
// able to reboot itself.
func (s *Supervisor) blockingUsers() int {
	if s.Policy == BlockNoUsers || s.Users == nil {
		return 0
	}

	count, err := s.Users.CountInteractiveUsers(s.Policy == BlockSSHUsers)
	if err != nil {
		s.j.Write(&EventWarning{
			Component: "escalation",
			Error:     errors.Wrap(err, "failed to count users").Error(),
		})
		return 0
	}

	return count
}

// rebootHost issues the configured privileged reboot command and, should the
// host still be up shortly after, falls back to the reboot syscall.
func (s *Supervisor) rebootHost() error {
	if _, err := exec.StartShell(s.RebootCommand); err != nil {
		s.j.Write(&EventWarning{
			Component: "escalation",
			Error:     errors.Wrap(err, "failed to issue reboot command").Error(),
		})
	} else {
		time.Sleep(30 * time.Second)
	}

	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
