package sessions

import (
	"testing"

	"github.com/pkg/errors"
)

const whoOutput = `pi       tty1         2026-08-25 09:14
pi       :0           2026-08-25 09:10 (:0)
admin    pts/0        2026-08-25 09:20 (192.168.1.50)
admin    pts/1        2026-08-25 09:31 (bastion.example.net)
`

type runnerFunc func(command string) (string, error)

func (f runnerFunc) Output(command string) (string, error) { return f(command) }

func TestCountSessions(t *testing.T) {
	tests := []struct {
		name       string
		out        string
		remoteOnly bool
		want       int
	}{
		{"all sessions", whoOutput, false, 4},
		{"remote only", whoOutput, true, 2},
		{"empty output", "", false, 0},
		{"empty output remote", "", true, 0},
		{"malformed lines skipped", "garbage\n\npi tty1 2026-08-25\n", false, 1},
		{"local display is not remote", "pi :0 2026-08-25 09:10 (:0)\n", true, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := countSessions(test.out, test.remoteOnly)
			if got != test.want {
				t.Errorf("counted %d sessions, expected %d", got, test.want)
			}
		})
	}
}

func TestCountInteractiveUsers(t *testing.T) {
	t.Run("runs who", func(t *testing.T) {
		var ranCommand string

		w := Who{Runner: runnerFunc(func(command string) (string, error) {
			ranCommand = command
			return whoOutput, nil
		})}

		count, err := w.CountInteractiveUsers(false)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
		if count != 4 {
			t.Error("counted", count, "sessions, expected 4")
		}
		if ranCommand != "who" {
			t.Errorf("ran %q, expected who", ranCommand)
		}
	})

	t.Run("propagates runner errors", func(t *testing.T) {
		w := Who{Runner: runnerFunc(func(string) (string, error) {
			return "", errors.New("sh: who: not found")
		})}

		if _, err := w.CountInteractiveUsers(true); err == nil {
			t.Fatal("expected an error")
		}
	})
}
