// Package display implements the kioskd display server: it watches the drop
// directory for displayable files and hands them to full-screen viewer
// processes launched through the supervisor.
package display

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"kioskd/supervisor"
)

// Supervisor is the slice of the supervision core the display server uses.
type Supervisor interface {
	RunWithTimeout(command string, timeout time.Duration) (string, error)
	Launch(command string) (int, error)
	Terminate(pid int) error
}

// Server watches a drop directory and keeps at most one viewer running.
type Server struct {
	// InitTimeout bounds each screen-init command. Zero means the
	// supervisor's default deadline.
	InitTimeout time.Duration

	sup Supervisor
	j   supervisor.Journaler

	dir          string
	viewers      map[string]string
	initCommands []string

	w *fsnotify.Watcher

	mu          sync.Mutex
	currentPID  int
	currentFile string
}

// NewServer creates a display server over the given drop directory. The
// viewers map associates lowercase file extensions with viewer command
// templates; a {file} placeholder is replaced with the quoted file path.
func NewServer(sup Supervisor, j supervisor.Journaler, dir string, viewers map[string]string, initCommands []string) *Server {
	return &Server{
		sup:          sup,
		j:            j,
		dir:          dir,
		viewers:      viewers,
		initCommands: initCommands,
	}
}

// Init runs the screen-init commands through the timeout watchdog. A hung or
// crashed init command does not return here; it escalates.
func (s *Server) Init() error {
	for _, command := range s.initCommands {
		if _, err := s.sup.RunWithTimeout(command, s.InitTimeout); err != nil {
			return errors.Wrapf(err, "init command %q", command)
		}
	}

	return nil
}

// Start begins watching the drop directory. The watcher stops once the
// context is canceled.
func (s *Server) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return errors.Wrap(err, "failed to watch drop dir")
	}

	s.w = watcher
	go s.watch(ctx)

	return nil
}

func (s *Server) watch(ctx context.Context) {
	defer s.w.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-s.w.Errors:
			s.j.Write(&supervisor.EventWarning{
				Component: "display",
				Error:     "inotify error: " + err.Error(),
			})

		case evt := <-s.w.Events:
			s.handle(evt)
		}
	}
}

func (s *Server) handle(evt fsnotify.Event) {
	switch {
	case evt.Op&(fsnotify.Create|fsnotify.Write) != 0:
		s.Show(evt.Name)

	case evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename out of the drop dir is a remove as far as the display is
		// concerned.
		s.mu.Lock()
		current := s.currentFile == evt.Name
		s.mu.Unlock()

		if current {
			s.Clear()
		}
	}
}

// Show displays the given file, replacing whatever viewer is running. Files
// with no configured viewer are journaled and skipped.
func (s *Server) Show(path string) {
	command, ok := s.viewerCommand(path)
	if !ok {
		s.j.Write(&supervisor.EventWarning{
			Component: "display",
			Error:     fmt.Sprintf("no viewer for %q, skipping", filepath.Base(path)),
		})
		return
	}

	s.Clear()

	pid, err := s.sup.Launch(command)
	if err != nil {
		s.j.Write(&supervisor.EventWarning{
			Component: "display",
			Error:     err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.currentPID = pid
	s.currentFile = path
	s.mu.Unlock()

	s.j.Write(&supervisor.EventDisplayed{File: path, Command: command, PID: pid})
}

// Clear stops the current viewer, if any.
func (s *Server) Clear() {
	s.mu.Lock()
	pid := s.currentPID
	s.currentPID = 0
	s.currentFile = ""
	s.mu.Unlock()

	if pid == 0 {
		return
	}

	if err := s.sup.Terminate(pid); err != nil && !errors.Is(err, supervisor.ErrNotTracked) {
		s.j.Write(&supervisor.EventWarning{
			Component: "display",
			Error:     err.Error(),
		})
	}
}

// viewerCommand resolves the viewer command for a file path.
func (s *Server) viewerCommand(path string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	tmpl, ok := s.viewers[ext]
	if !ok || tmpl == "" {
		return "", false
	}

	quoted := shellQuote(path)
	if strings.Contains(tmpl, "{file}") {
		return strings.ReplaceAll(tmpl, "{file}", quoted), true
	}

	return tmpl + " " + quoted, true
}

// shellQuote single-quotes a path for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
