// Package watch observes the story's Nodes directory and reports external
// edits, so a running editor can pick up changes made by other tools.
package watch

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mooncrowned/storyed/internal/logging"
)

// DefaultQuiet is how long the directory must stay silent before a change
// burst is reported as one event.
const DefaultQuiet = 500 * time.Millisecond

// Watcher debounces filesystem events on one directory into OnChange calls.
type Watcher struct {
	dir      string
	quiet    time.Duration
	logger   *slog.Logger
	onChange func()

	fs     *fsnotify.Watcher
	mu     sync.Mutex
	timer  *time.Timer
	stopCh chan struct{}
	done   sync.WaitGroup
}

// New creates a watcher for dir. onChange runs on the watcher goroutine
// after each quiet period; it must not block for long.
func New(dir string, quiet time.Duration, logger *slog.Logger, onChange func()) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      dir,
		quiet:    quiet,
		logger:   logger,
		onChange: onChange,
		fs:       fs,
		stopCh:   make(chan struct{}),
	}
	w.done.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.done.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("story file changed", "file", ev.Name, "op", ev.Op.String())
			w.bump()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

// bump restarts the quiet timer; change bursts coalesce into one report.
func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.quiet, w.onChange)
}

// Close stops watching. A pending quiet timer is cancelled.
func (w *Watcher) Close() error {
	close(w.stopCh)
	err := w.fs.Close()
	w.done.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
