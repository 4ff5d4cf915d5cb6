package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ytclab/ytcbot/internal/botconfig"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload() error {
	r.calls.Add(1)
	return r.err
}

func TestHandler_HandleEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		event     Event
		reloadErr error
		wantCalls int32
		wantErr   bool
	}{
		{name: "modified", event: Event{Type: EventModified}, wantCalls: 1},
		{name: "removed", event: Event{Type: EventRemoved}, wantCalls: 0},
		{name: "reload error", event: Event{Type: EventModified}, reloadErr: errors.New("bad json"), wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &countingReloader{err: tt.reloadErr}
			h := NewHandler(r, nil)

			err := h.HandleEvent(context.Background(), tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := r.calls.Load(); got != tt.wantCalls {
				t.Errorf("reload calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestHandler_CancelledContext(t *testing.T) {
	t.Parallel()
	r := &countingReloader{}
	h := NewHandler(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.HandleEvent(ctx, Event{Type: EventModified}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if r.calls.Load() != 0 {
		t.Error("reloaded after cancellation")
	}
}

func TestHandler_RunAppliesExternalEdit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot_config.json")
	if err := os.WriteFile(path, []byte(`{"system_prompt":"old"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := botconfig.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	updated := make(chan botconfig.Settings, 1)
	store.Subscribe(func(s botconfig.Settings) { updated <- s })

	w := newTestWatcher(t, path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	go NewHandler(store, nil).Run(ctx, w.Events())

	if err := os.WriteFile(path, []byte(`{"system_prompt":"new"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-updated:
		if s.SystemPrompt != "new" {
			t.Errorf("SystemPrompt = %q, want %q", s.SystemPrompt, "new")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("settings were not reloaded")
	}
}
