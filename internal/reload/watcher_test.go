package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ytclab/ytcbot/internal/atomicfile"
)

func newTestWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := NewWatcher(WatcherConfig{Path: path, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestWatcher_InPlaceWrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot_config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, path)
	w.Start(context.Background())

	if err := os.WriteFile(path, []byte(`{"prefix":"?"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, w)
	if ev.Type != EventModified {
		t.Errorf("event type = %q, want %q", ev.Type, EventModified)
	}
	if ev.Path != w.Path() {
		t.Errorf("event path = %q, want %q", ev.Path, w.Path())
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot_config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, path)
	w.Start(context.Background())

	if err := atomicfile.WriteJSON(path, map[string]string{"prefix": "?"}); err != nil {
		t.Fatal(err)
	}

	if ev := waitEvent(t, w); ev.Type != EventModified {
		t.Errorf("event type = %q, want %q", ev.Type, EventModified)
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "bot_config.json")

	w := newTestWatcher(t, path)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event: %+v", ev)
	case <-ctx.Done():
	}
}

func TestWatcher_Removed(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot_config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, path)
	w.Start(context.Background())

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if ev := waitEvent(t, w); ev.Type != EventRemoved {
		t.Errorf("event type = %q, want %q", ev.Type, EventRemoved)
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	t.Parallel()
	if _, err := NewWatcher(WatcherConfig{Path: "/nonexistent/dir/bot_config.json"}); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()
	w, err := NewWatcher(WatcherConfig{Path: filepath.Join(t.TempDir(), "x.json")})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop before Start deadlocked")
	}
}
