package supervisor

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"kioskd/supervisor/exec"
)

// mockJournal is an in-memory storage of journals, primarily used for
// testing. A zero-value instance is a valid instance.
type mockJournal struct {
	mutex    sync.Mutex
	journals []Event
}

var _ Journaler = (*mockJournal)(nil)

// Write appends a journal event into the internal store.
func (m *mockJournal) Write(ev Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.journals = append(m.journals, ev)
	return nil
}

// Journals returns a copy of the journal slice.
func (m *mockJournal) Journals() []Event {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]Event(nil), m.journals...)
}

// Verify verifies that the given journals slice is equal to the one stored
// internally. If strict is true, then a length check is performed,
// otherwise, the unmatched events are returned.
//
// Consecutive calls to Verify will match the remaining unmatched events.
func (m *mockJournal) Verify(t *testing.T, strict bool, journals []Event) []Event {
	t.Helper()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if strict && len(journals) != len(m.journals) {
		t.Errorf("mismatch journal length, got %d, expected %d", len(m.journals), len(journals))
		return nil
	}

	if len(journals) > len(m.journals) {
		t.Errorf("missing journals, got %d, expected %d", len(m.journals), len(journals))
		return nil
	}

	for i, ev := range journals {
		if !reflect.DeepEqual(m.journals[i], ev) {
			t.Errorf("journal %d mismatch, got %#v, expected %#v", i, m.journals[i], ev)
		}
	}

	m.journals = m.journals[len(journals):]
	return append([]Event(nil), m.journals...)
}

// fakeStarter hands out FakeProcesses with sequential PIDs and remembers
// them by PID.
type fakeStarter struct {
	mutex sync.Mutex
	pid   int
	procs map[int]*exec.FakeProcess
	err   error
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{procs: map[int]*exec.FakeProcess{}}
}

func (f *fakeStarter) start(command string) (exec.Process, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.pid++
	proc := exec.NewFakeProcess(f.pid)
	f.procs[f.pid] = proc

	return proc, nil
}

func (f *fakeStarter) proc(pid int) *exec.FakeProcess {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.procs[pid]
}

// rebootRecorder stands in for the privileged reboot command.
type rebootRecorder struct {
	mutex sync.Mutex
	count int
}

func (r *rebootRecorder) reboot() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.count++
	return nil
}

func (r *rebootRecorder) calls() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.count
}

// waitReboots blocks until the rebooter has fired n times. Escalation runs
// on its own goroutine when the reactor triggers it, so tests asserting a
// reboot have to wait for it.
func waitReboots(t *testing.T, r *rebootRecorder, n int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for r.calls() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d reboots, got %d", n, r.calls())
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// fakeUsers replays a fixed sequence of blocking-user counts; the last count
// repeats once the sequence runs out. It records the remoteOnly arguments it
// was called with.
type fakeUsers struct {
	mutex      sync.Mutex
	counts     []int
	polls      int
	remoteOnly []bool
	err        error
}

func (f *fakeUsers) CountInteractiveUsers(remoteOnly bool) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.remoteOnly = append(f.remoteOnly, remoteOnly)
	f.polls++

	if f.err != nil {
		return 0, f.err
	}

	ix := f.polls - 1
	if ix >= len(f.counts) {
		ix = len(f.counts) - 1
	}
	if ix < 0 {
		return 0, nil
	}

	return f.counts[ix], nil
}

func (f *fakeUsers) pollCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.polls
}

// newTestSupervisor builds a supervisor wired entirely to fakes: sequential
// fake processes, a recording rebooter and microsecond escalation intervals.
func newTestSupervisor(j Journaler) (*Supervisor, *fakeStarter, *rebootRecorder) {
	starter := newFakeStarter()
	rebooter := &rebootRecorder{}

	s := New(context.Background(), j)
	s.PollInterval = time.Microsecond
	s.GracePeriod = time.Microsecond

	s.start = starter.start
	s.reboot = rebooter.reboot
	s.subreap = func() error { return nil }
	s.reap = func() (exec.ExitStatus, bool) { return exec.ExitStatus{}, false }

	return s, starter, rebooter
}

func (s *Supervisor) trackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tracked)
}
