package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestFileLog_AppendTrimsAndRecentOrders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fl := NewFileLog(filepath.Join(t.TempDir(), "memory"), nil)

	for i := 0; i < 7; i++ {
		turn := Turn{Author: "a", Input: fmt.Sprintf("in-%d", i), Reply: "r", Timestamp: "t"}
		if err := fl.Append(ctx, "s", turn, 5); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	all, err := fl.Recent(ctx, "s", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	if all[0].Input != "in-2" || all[4].Input != "in-6" {
		t.Errorf("kept %q..%q, want in-2..in-6", all[0].Input, all[4].Input)
	}

	last2, err := fl.Recent(ctx, "s", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last2) != 2 || last2[0].Input != "in-5" || last2[1].Input != "in-6" {
		t.Errorf("Recent(2) = %+v", last2)
	}
}

func TestFileLog_MissingAndCorrupt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	fl := NewFileLog(dir, nil)

	turns, err := fl.Recent(ctx, "absent", 5)
	if err != nil || turns != nil {
		t.Errorf("Recent(absent) = %v, %v, want nil, nil", turns, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fl.Recent(ctx, "bad", 5); !errors.Is(err, ErrStorageRead) {
		t.Errorf("Recent(bad) error = %v, want ErrStorageRead", err)
	}

	// Appending over a corrupt log starts a fresh one.
	if err := fl.Append(ctx, "bad", Turn{Author: "a", Input: "i", Reply: "r"}, 10); err != nil {
		t.Fatal(err)
	}
	turns, err = fl.Recent(ctx, "bad", 0)
	if err != nil || len(turns) != 1 {
		t.Errorf("after append: %v, %v", turns, err)
	}
}

func TestFileLog_DeleteAndInspect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "memory")
	fl := NewFileLog(dir, nil)

	info, err := fl.Inspect(ctx, "s1")
	if err != nil {
		t.Fatalf("Inspect on missing dir: %v", err)
	}
	if info.Exists || len(info.Scopes) != 0 {
		t.Errorf("info = %+v", info)
	}

	for _, s := range []string{"s2", "s1"} {
		if err := fl.Append(ctx, s, Turn{Author: "a"}, 10); err != nil {
			t.Fatal(err)
		}
	}

	info, err = fl.Inspect(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !info.Exists || info.Size == 0 || info.Turns != 1 {
		t.Errorf("info = %+v", info)
	}
	if info.Location != filepath.Join(dir, "s1.json") || info.Container != dir {
		t.Errorf("location = %q container = %q", info.Location, info.Container)
	}
	if len(info.Scopes) != 2 || info.Scopes[0] != "s1" || info.Scopes[1] != "s2" {
		t.Errorf("Scopes = %v", info.Scopes)
	}

	removed, err := fl.Delete(ctx, "s1")
	if err != nil || !removed {
		t.Errorf("Delete() = %v, %v", removed, err)
	}
	removed, err = fl.Delete(ctx, "s1")
	if err != nil || removed {
		t.Errorf("second Delete() = %v, %v", removed, err)
	}
}

func TestFileLog_InvalidScope(t *testing.T) {
	t.Parallel()

	fl := NewFileLog(t.TempDir(), nil)
	if err := fl.Append(context.Background(), "../x", Turn{}, 1); !errors.Is(err, ErrStorageWrite) {
		t.Errorf("Append() error = %v, want ErrStorageWrite", err)
	}
}
