package journal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"kioskd/supervisor"
)

// HumanWriter writes events as one-line human-readable messages, prefixed
// with a timestamp and the writer's name.
type HumanWriter struct {
	mu   sync.Mutex
	name string
	w    io.Writer
}

var _ supervisor.Journaler = (*HumanWriter)(nil)

// NewHumanWriter creates a human-readable journaler with the given name.
func NewHumanWriter(name string, w io.Writer) *HumanWriter {
	return &HumanWriter{name: name, w: w}
}

func (h *HumanWriter) Write(ev supervisor.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := fmt.Fprintf(h.w, "%s %s: %s\n",
		time.Now().Format(time.RFC3339), h.name, Describe(ev))

	return errors.Wrap(err, "failed to write event")
}

const (
	tagOK     = "[  OK  ]"
	tagFailed = "[FAILED]"

	colorOK     = "\x1b[1;32m" // bold green
	colorFailed = "\x1b[1;31m" // bold red
	colorReset  = "\x1b[0m"
)

// ConsoleWriter writes boot-console style lines with a leading OK/FAILED
// tag. The tag is colored when the destination is a terminal.
type ConsoleWriter struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

var _ supervisor.Journaler = (*ConsoleWriter)(nil)

// NewConsoleWriter creates a console journaler. Color is applied
// automatically when f is a terminal.
func NewConsoleWriter(f *os.File) *ConsoleWriter {
	return &ConsoleWriter{
		w:     f,
		color: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
	}
}

func (c *ConsoleWriter) Write(ev supervisor.Event) error {
	tag := tagOK
	color := colorOK

	if isFailure(ev) {
		tag = tagFailed
		color = colorFailed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.color {
		_, err = fmt.Fprintf(c.w, "%s%s%s %s\n", color, tag, colorReset, Describe(ev))
	} else {
		_, err = fmt.Fprintf(c.w, "%s %s\n", tag, Describe(ev))
	}

	return errors.Wrap(err, "failed to write event")
}

// isFailure reports whether the event gets the FAILED console tag.
func isFailure(ev supervisor.Event) bool {
	switch ev.(type) {
	case *supervisor.EventWarning,
		*supervisor.EventProcessDied,
		*supervisor.EventEscalation:
		return true
	}
	return false
}

// Describe renders an event as a single human-readable line.
func Describe(ev supervisor.Event) string {
	switch ev := ev.(type) {
	case *supervisor.EventWarning:
		return fmt.Sprintf("warning from %s: %s", ev.Component, ev.Error)
	case *supervisor.EventAcquired:
		return "journal lock acquired"
	case *supervisor.EventProcessStarted:
		return fmt.Sprintf("started pid %d: %s", ev.PID, ev.Command)
	case *supervisor.EventProcessStopping:
		return fmt.Sprintf("stopping pid %d: %s", ev.PID, ev.Command)
	case *supervisor.EventProcessDied:
		return fmt.Sprintf("pid %d (%s) died with status %d", ev.PID, ev.Command, ev.ExitCode)
	case *supervisor.EventEscalation:
		return ev.Message
	case *supervisor.EventRebootDeferred:
		return fmt.Sprintf("reboot deferred: %d blocking users logged in", ev.Users)
	case *supervisor.EventRebootReinstated:
		return "no blocking users left; reinstating reboot"
	case *supervisor.EventRebootArmed:
		return fmt.Sprintf("rebooting in %d seconds unless a user logs in", ev.GraceSeconds)
	case *supervisor.EventRebooting:
		return "rebooting now"
	case *supervisor.EventDisplayed:
		return fmt.Sprintf("displaying %s (pid %d)", ev.File, ev.PID)
	case *supervisor.EventPinChanged:
		return fmt.Sprintf("gpio pin %d set to %d", ev.Pin, ev.Value)
	default:
		return ev.Type()
	}
}
