package exec

import (
	"os"
	"sync"
)

// FakeProcess is a Process that only records the signals sent to it. It is
// used for testing.
type FakeProcess struct {
	mu      sync.Mutex
	pid     int
	signals []os.Signal
}

// NewFakeProcess creates a fake process with the given PID.
func NewFakeProcess(pid int) *FakeProcess {
	return &FakeProcess{pid: pid}
}

func (fake *FakeProcess) PID() int { return fake.pid }

func (fake *FakeProcess) Signal(sig os.Signal) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.signals = append(fake.signals, sig)
	return nil
}

func (fake *FakeProcess) Kill() error {
	return fake.Signal(os.Kill)
}

// Killed returns true if the process has been sent SIGKILL.
func (fake *FakeProcess) Killed() bool {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	for _, sig := range fake.signals {
		if sig == os.Kill {
			return true
		}
	}
	return false
}

// Signals returns a copy of the signals sent so far.
func (fake *FakeProcess) Signals() []os.Signal {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	return append([]os.Signal(nil), fake.signals...)
}
