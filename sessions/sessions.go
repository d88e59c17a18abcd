// Package sessions implements the supervisor's user-presence boundary by
// running who(1) and counting its lines. The supervisor consults it before
// rebooting so the device is not yanked out from under a debugging operator.
package sessions

import (
	"strings"

	"github.com/pkg/errors"
)

// Runner runs a command string and returns its output. It is satisfied by
// *supervisor.Supervisor.
type Runner interface {
	Output(command string) (string, error)
}

// Who counts interactive sessions via who(1).
type Who struct {
	Runner  Runner
	Command string // defaults to "who"
}

// CountInteractiveUsers returns the number of interactive sessions. With
// remoteOnly, only sessions with a remote origin host are counted, which is
// how SSH sessions are told apart from the local console and the display
// session.
func (w *Who) CountInteractiveUsers(remoteOnly bool) (int, error) {
	command := w.Command
	if command == "" {
		command = "who"
	}

	out, err := w.Runner.Output(command)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list sessions")
	}

	return countSessions(out, remoteOnly), nil
}

// countSessions counts who(1) lines. Lines that don't look like session
// records are skipped rather than failing the whole query.
func countSessions(out string, remoteOnly bool) int {
	var count int

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		if remoteOnly && !isRemote(fields) {
			continue
		}

		count++
	}

	return count
}

// isRemote reports whether a who(1) record carries a remote origin. The
// origin is the trailing parenthesized column; X sessions show a display
// like (:0), which is local.
func isRemote(fields []string) bool {
	last := fields[len(fields)-1]
	if !strings.HasPrefix(last, "(") || !strings.HasSuffix(last, ")") {
		return false
	}

	origin := strings.Trim(last, "()")
	return origin != "" && !strings.HasPrefix(origin, ":")
}
