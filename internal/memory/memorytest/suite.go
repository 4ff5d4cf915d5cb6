// Package memorytest provides a conformance suite for memory.Log
// implementations.
package memorytest

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/ytclab/ytcbot/internal/memory"
)

// RunLogSuite exercises the behaviour every durable backend must share.
// newLog returns a fresh, empty log for each subtest.
func RunLogSuite(t *testing.T, newLog func(t *testing.T) memory.Log) {
	t.Helper()

	t.Run("append trims to max and keeps order", func(t *testing.T) {
		ctx := context.Background()
		log := newLog(t)

		for i := range 7 {
			turn := memory.Turn{Author: "ann", Input: fmt.Sprintf("in-%d", i), Reply: "r", Timestamp: "2025-01-01 10:00:00"}
			if err := log.Append(ctx, "s1", turn, 5); err != nil {
				t.Fatalf("Append(%d): %v", i, err)
			}
		}

		all, err := log.Recent(ctx, "s1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 5 || all[0].Input != "in-2" || all[4].Input != "in-6" {
			t.Fatalf("Recent(0) = %+v, want in-2..in-6", all)
		}

		last, err := log.Recent(ctx, "s1", 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(last) != 2 || last[0].Input != "in-5" || last[1].Input != "in-6" {
			t.Errorf("Recent(2) = %+v", last)
		}
	})

	t.Run("fields round trip", func(t *testing.T) {
		ctx := context.Background()
		log := newLog(t)
		want := memory.Turn{Author: "ann", Input: "weather?", Reference: "sunny", Reply: "It is sunny.", Timestamp: "2025-01-01 10:00:00"}
		if err := log.Append(ctx, "s1", want, 10); err != nil {
			t.Fatal(err)
		}
		got, err := log.Recent(ctx, "s1", 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0] != want {
			t.Errorf("Recent = %+v, want [%+v]", got, want)
		}
	})

	t.Run("absent scope", func(t *testing.T) {
		ctx := context.Background()
		log := newLog(t)
		got, err := log.Recent(ctx, "nobody", 5)
		if err != nil || len(got) != 0 {
			t.Errorf("Recent(absent) = (%v, %v), want empty", got, err)
		}
		removed, err := log.Delete(ctx, "nobody")
		if err != nil || removed {
			t.Errorf("Delete(absent) = (%v, %v), want (false, nil)", removed, err)
		}
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		ctx := context.Background()
		log := newLog(t)
		for _, s := range []string{"a", "b"} {
			if err := log.Append(ctx, s, memory.Turn{Author: s, Input: s, Reply: s, Timestamp: "t"}, 10); err != nil {
				t.Fatal(err)
			}
		}

		removed, err := log.Delete(ctx, "a")
		if err != nil || !removed {
			t.Fatalf("Delete(a) = (%v, %v)", removed, err)
		}
		if got, _ := log.Recent(ctx, "a", 0); len(got) != 0 {
			t.Errorf("scope a still has %d turns", len(got))
		}
		if got, _ := log.Recent(ctx, "b", 0); len(got) != 1 {
			t.Errorf("scope b has %d turns, want 1", len(got))
		}
	})

	t.Run("inspect", func(t *testing.T) {
		ctx := context.Background()
		log := newLog(t)
		for _, s := range []string{"b", "a"} {
			if err := log.Append(ctx, s, memory.Turn{Author: "x", Input: "i", Reply: "r", Timestamp: "t"}, 10); err != nil {
				t.Fatal(err)
			}
		}

		info, err := log.Inspect(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if !info.Exists || info.Turns != 1 || info.Backend == "" || info.Location == "" {
			t.Errorf("Inspect(a) = %+v", info)
		}
		if !slices.Equal(info.Scopes, []string{"a", "b"}) {
			t.Errorf("Scopes = %v, want [a b]", info.Scopes)
		}

		missing, err := log.Inspect(ctx, "zzz")
		if err != nil || missing.Exists {
			t.Errorf("Inspect(missing) = (%+v, %v)", missing, err)
		}
	})
}
