package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kioskd/supervisor"
)

func TestHumanWriter(t *testing.T) {
	var buf bytes.Buffer
	h := NewHumanWriter("stdout", &buf)

	if err := h.Write(&supervisor.EventRebooting{}); err != nil {
		t.Fatal("failed to write:", err)
	}

	line := buf.String()
	if !strings.Contains(line, "stdout: rebooting now") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestConsoleWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal("failed to create console file:", err)
	}
	defer f.Close()

	// A regular file is not a terminal, so the tag must be uncolored.
	c := NewConsoleWriter(f)

	c.Write(&supervisor.EventProcessStarted{PID: 9, Command: "mpv --fs a.mp4"})
	c.Write(&supervisor.EventEscalation{Message: "Timeout (60 secs) executing \"wvdial\""})

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal("failed to read console file:", err)
	}

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}

	if !strings.HasPrefix(lines[0], "[  OK  ] ") {
		t.Errorf("normal event not tagged OK: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[FAILED] ") {
		t.Errorf("escalation not tagged FAILED: %q", lines[1])
	}
	if strings.Contains(string(b), "\x1b[") {
		t.Error("color codes written to a non-terminal")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		ev   supervisor.Event
		want string
	}{
		{&supervisor.EventEscalation{Message: "boom"}, "boom"},
		{&supervisor.EventProcessDied{PID: 3, Command: "feh", ExitCode: -1}, "pid 3 (feh) died with status -1"},
		{&supervisor.EventRebootDeferred{Users: 2}, "reboot deferred: 2 blocking users logged in"},
		{&supervisor.EventPinChanged{Pin: 17, Value: 1}, "gpio pin 17 set to 1"},
	}

	for _, test := range tests {
		if got := Describe(test.ev); got != test.want {
			t.Errorf("Describe(%#v) = %q, expected %q", test.ev, got, test.want)
		}
	}
}
