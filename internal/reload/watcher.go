// Package reload watches the bot config document on disk and applies
// external edits to the running process.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Path is the file to watch.
	Path string

	// Debounce coalesces bursts of writes into one event. Defaults to
	// 250ms when zero.
	Debounce time.Duration

	Logger *slog.Logger
}

func (c WatcherConfig) debounceOrDefault() time.Duration {
	if c.Debounce > 0 {
		return c.Debounce
	}
	return defaultDebounce
}

// EventType describes the kind of change observed.
type EventType string

const (
	// EventModified indicates the file was written or replaced.
	EventModified EventType = "modified"
	// EventRemoved indicates the file disappeared.
	EventRemoved EventType = "removed"
)

// Event is one debounced change notification.
type Event struct {
	Type EventType
	Path string
}

// Watcher reports changes to a single file. It watches the parent
// directory so atomic rename-over writes are seen as well as in-place
// edits.
type Watcher struct {
	cfg    WatcherConfig
	fs     *fsnotify.Watcher
	events chan Event
	logger *slog.Logger

	stop      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	mu        sync.Mutex
}

// NewWatcher creates a watcher for cfg.Path. The parent directory must
// exist.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("reload: resolving %s: %w", cfg.Path, err)
	}
	cfg.Path = path

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("reload: creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("reload: watching %s: %w", filepath.Dir(path), err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:     cfg,
		fs:      fsw,
		events:  make(chan Event, 1),
		logger:  logger.With("component", "reload"),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.cfg.Path }

// Start begins delivering events. Only the first call has an effect.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.started = true
		w.mu.Unlock()
		go w.run(ctx)
	})
}

// Events returns the channel of debounced change events. At most one
// event is buffered; further changes before it is consumed are dropped.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and releases the OS handle. Safe to call more
// than once and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.mu.Lock()
		started := w.started
		w.mu.Unlock()
		if started {
			<-w.stopped
		}
		_ = w.fs.Close()
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.stopped)

	debounce := w.cfg.debounceOrDefault()
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	var pending *Event
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			typ, relevant := w.classify(ev)
			if !relevant {
				continue
			}
			pending = &Event{Type: typ, Path: w.cfg.Path}
			timer.Reset(debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "path", w.cfg.Path, "error", err)

		case <-timer.C:
			if pending == nil {
				continue
			}
			select {
			case w.events <- *pending:
			default:
			}
			pending = nil
		}
	}
}

func (w *Watcher) classify(ev fsnotify.Event) (EventType, bool) {
	if filepath.Clean(ev.Name) != w.cfg.Path {
		return "", false
	}
	switch {
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		return EventModified, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return EventRemoved, true
	default:
		return "", false
	}
}
