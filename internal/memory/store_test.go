package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s := NewStore(NewFileLog(filepath.Join(t.TempDir(), "memory"), nil), cfg, nil)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local) }
	return s
}

func TestStore_BoundedLogKeepsLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{MaxMemories: 10})

	for i := 0; i < 25; i++ {
		if err := s.Append(ctx, "s", "nick", fmt.Sprintf("q%02d", i), "", fmt.Sprintf("a%02d", i)); err != nil {
			t.Fatal(err)
		}
	}

	for _, k := range []int{1, 3, 10, 50} {
		text, ok := s.ReadRecent(ctx, "s", k)
		if !ok {
			t.Fatalf("ReadRecent(%d) found nothing", k)
		}
		want := min(k, 10)
		if got := strings.Count(text, "Input: "); got != want {
			t.Errorf("ReadRecent(%d) rendered %d turns, want %d", k, got, want)
		}
		// Chronological: the oldest kept turn comes first, the newest last.
		first := 25 - want
		if !strings.HasPrefix(text, fmt.Sprintf("User: nick\nInput: q%02d\n", first)) {
			t.Errorf("ReadRecent(%d) starts wrong:\n%s", k, text)
		}
		if !strings.Contains(text, "Input: q24\nReply: a24\n") {
			t.Errorf("ReadRecent(%d) missing newest turn", k)
		}
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	if err := s.Append(ctx, "s", "Ann", "what's new?", "", "not much"); err != nil {
		t.Fatal(err)
	}
	text, ok := s.ReadRecent(ctx, "s", 1)
	if !ok {
		t.Fatal("ReadRecent found nothing")
	}
	for _, want := range []string{"Ann", "what's new?", "not much"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendering %q lacks %q", text, want)
		}
	}
	if strings.Contains(text, "Reference:") {
		t.Error("reference line present without a search excerpt")
	}

	if err := s.Append(ctx, "s", "Ann", "score?", "3-1 final", "3-1"); err != nil {
		t.Fatal(err)
	}
	text, _ = s.ReadRecent(ctx, "s", 1)
	if !strings.Contains(text, "Reference: 3-1 final\n") {
		t.Errorf("reference line missing:\n%s", text)
	}
}

func TestStore_ReadRecentAbsent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, Config{})
	if text, ok := s.ReadRecent(context.Background(), "nothing", 5); ok || text != "" {
		t.Errorf("ReadRecent() = %q, %v, want empty false", text, ok)
	}
}

func TestStore_ConcurrentAppendsBothPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{MaxMemories: 1000})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Append(ctx, "shared", "u", fmt.Sprintf("q%d", i), "", "a"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	turns, err := s.Log().Recent(ctx, "shared", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != n {
		t.Errorf("persisted %d turns, want %d", len(turns), n)
	}
}

func TestStore_AddVolatile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	// A model entry with no prior user entry is windowed but not persisted.
	if err := s.AddVolatile(ctx, "42", "s", "model", "unprompted"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.ReadRecent(ctx, "s", 5); ok {
		t.Error("model entry without a user entry should not persist")
	}

	if err := s.AddVolatile(ctx, "42", "s", "user", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddVolatile(ctx, "42", "s", "assistant", "hi there"); err != nil {
		t.Fatal(err)
	}

	win := s.VolatileWindow("42", "s")
	if len(win) != 3 || win[2].Role != RoleModel {
		t.Fatalf("window = %+v", win)
	}

	text, ok := s.ReadRecent(ctx, "s", 5)
	if !ok {
		t.Fatal("model entry should persist paired with the user entry")
	}
	if !strings.Contains(text, "User: User_42\nInput: hello\nReply: hi there\n") {
		t.Errorf("rendered:\n%s", text)
	}

	if err := s.AddVolatile(ctx, "42", "s", "system", "x"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("system role error = %v, want ErrInvalidRole", err)
	}
}

func TestStore_WindowEvictsPastCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})
	for i := 0; i < WindowSize+5; i++ {
		if err := s.AddVolatile(ctx, "a", "s", "user", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	win := s.VolatileWindow("a", "s")
	if len(win) != WindowSize {
		t.Fatalf("len = %d, want %d", len(win), WindowSize)
	}
	if win[0].Content != "m5" {
		t.Errorf("oldest = %q, want m5", win[0].Content)
	}
}

func TestStore_RecordTurnWritesThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	err := s.RecordTurn(ctx, TurnRecord{
		AuthorID: "7", AuthorNick: "Kai", Scope: "s",
		Input: "weather?", Search: "sunny", Reply: "It is sunny.",
	})
	if err != nil {
		t.Fatal(err)
	}

	win := s.VolatileWindow("7", "s")
	if len(win) != 2 || win[0].Role != RoleUser || win[1].Role != RoleModel {
		t.Errorf("window = %+v", win)
	}

	turns, err := s.Log().Recent(ctx, "s", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 {
		t.Fatalf("persisted %d turns, want exactly 1", len(turns))
	}
	if turns[0].Author != "Kai" || turns[0].Reference != "sunny" {
		t.Errorf("turn = %+v", turns[0])
	}
}

func TestStore_GetContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, Config{})
		got := s.GetContext(ctx, "a", "s")
		if got == nil || len(got) != 0 {
			t.Errorf("GetContext() = %#v, want empty non-nil", got)
		}
	})

	t.Run("window wins", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, Config{})
		_ = s.Append(ctx, "s", "old", "durable", "", "reply")
		_ = s.AddVolatile(ctx, "a", "s", "user", "fresh")
		got := s.GetContext(ctx, "a", "s")
		if len(got) != 1 || got[0].Content != "fresh" {
			t.Errorf("GetContext() = %+v", got)
		}
	})

	t.Run("summary fallback", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, Config{})
		_ = s.Append(ctx, "s", "Ann", "q1", "", "a1")
		got := s.GetContext(ctx, "b", "s")
		if len(got) != 1 || got[0].Role != RoleModel {
			t.Fatalf("GetContext() = %+v", got)
		}
		if !strings.HasPrefix(got[0].Content, FallbackPrefix+"User: Ann\n") {
			t.Errorf("content = %q", got[0].Content)
		}
	})

	t.Run("turns fallback", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, Config{Fallback: FallbackTurns})
		_ = s.Append(ctx, "s", "Ann", "q1", "", "a1")
		_ = s.Append(ctx, "s", "Ann", "q2", "", "a2")
		got := s.GetContext(ctx, "b", "s")
		if len(got) != 4 {
			t.Fatalf("len = %d, want 4", len(got))
		}
		want := []string{"user:q1", "model:a1", "user:q2", "model:a2"}
		for i, m := range got {
			if m.Role+":"+m.Content != want[i] {
				t.Errorf("[%d] = %s:%s, want %s", i, m.Role, m.Content, want[i])
			}
		}
	})
}

func TestStore_ClearIsAuthorScopedInMemoryButScopeWideOnDisk(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})

	_ = s.RecordTurn(ctx, TurnRecord{AuthorID: "a", Scope: "s", Input: "qa", Reply: "ra"})
	_ = s.RecordTurn(ctx, TurnRecord{AuthorID: "b", Scope: "s", Input: "qb", Reply: "rb"})

	if err := s.Clear(ctx, "a", "s"); err != nil {
		t.Fatal(err)
	}

	if w := s.VolatileWindow("a", "s"); len(w) != 0 {
		t.Errorf("author a window = %+v, want cleared", w)
	}
	if w := s.VolatileWindow("b", "s"); len(w) != 2 {
		t.Errorf("author b window = %+v, want untouched", w)
	}
	if _, ok := s.ReadRecent(ctx, "s", 5); ok {
		t.Error("durable log should be gone for every author")
	}

	// Clearing an already empty scope is fine.
	if err := s.Clear(ctx, "a", "s"); err != nil {
		t.Errorf("second Clear() = %v", err)
	}
}

func TestStore_PruneIdle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, Config{})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.AddVolatile(ctx, "old", "s", "user", "x")
	now = now.Add(2 * time.Hour)
	_ = s.AddVolatile(ctx, "new", "s", "user", "y")

	if n := s.PruneIdle(time.Hour); n != 1 {
		t.Errorf("PruneIdle() = %d, want 1", n)
	}
	if s.WindowCount() != 1 || len(s.VolatileWindow("new", "s")) != 1 {
		t.Error("the active window should survive")
	}
}
