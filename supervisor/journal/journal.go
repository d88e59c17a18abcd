// Package journal provides implementations of kioskd's Journaler interface:
// a flock-guarded device log file, a human-readable writer, a boot-console
// writer, and a fanout combining them. The file lock doubles as the
// single-instance guard, so only one kioskd can run with the same journal
// file.
package journal

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"kioskd/supervisor"
)

// multiWriter combines multiple journalers.
type multiWriter struct {
	writers []supervisor.Journaler
}

// MultiWriter creates a journaler that writes to multiple other journalers.
// Every journaler receives every event even when an earlier one fails; only
// the first error is reported. This is the sink-fanout guarantee escalation
// messages rely on.
func MultiWriter(ws ...supervisor.Journaler) supervisor.Journaler {
	return &multiWriter{writers: ws}
}

func (w *multiWriter) Write(event supervisor.Event) error {
	var firstErr error
	for _, writer := range w.writers {
		if err := writer.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// FileLockJournaler is a journaler that uses a file lock (flock) to lock the
// given file and writes to it. The FileLockJournaler instance must be closed
// by the caller or by the operating system when the application exits.
type FileLockJournaler struct {
	Writer
	f *os.File
	l *flock.Flock
}

// ErrLockedElsewhere is returned if NewFileLockJournaler can't acquire the
// file lock, meaning another instance owns the journal.
var ErrLockedElsewhere = errors.New("file already locked elsewhere")

// NewFileLockJournaler creates a new file journaler if it can acquire a
// flock on the path. It returns an error if it fails to acquire the lock.
func NewFileLockJournaler(path string) (*FileLockJournaler, error) {
	return newFileLockJournaler(nil, path)
}

// NewFileLockJournalerWait creates a new file journaler but waits until the
// lock can be acquired or until the context times out.
func NewFileLockJournalerWait(ctx context.Context, path string) (*FileLockJournaler, error) {
	return newFileLockJournaler(ctx, path)
}

func newFileLockJournaler(ctx context.Context, path string) (*FileLockJournaler, error) {
	// Ensure the directory exists.
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create journal directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_SYNC, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	l := flock.New(path)

	var locked bool
	if ctx != nil {
		locked, err = l.TryLockContext(ctx, 25*time.Millisecond)
	} else {
		locked, err = l.TryLock()
	}

	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to acquire lock")
	}

	if !locked {
		f.Close()
		return nil, ErrLockedElsewhere
	}

	return &FileLockJournaler{
		Writer: Writer{f},
		f:      f,
		l:      l,
	}, nil
}

// Close closes the file and releases the flock.
func (f *FileLockJournaler) Close() error {
	f.f.Close()
	return f.l.Unlock()
}
