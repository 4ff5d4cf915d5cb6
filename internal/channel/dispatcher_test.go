package channel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/pkg/message"
)

func TestDispatcher_RegisterAndGet(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(0, nil)
	ch := NewMockChannel("console")

	if err := d.Register("console", ch); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, ok := d.Get("console")
	if !ok || got != ch {
		t.Fatal("Get did not return the registered channel")
	}
	if err := d.Register("console", ch); !errors.Is(err, ErrDuplicateChannel) {
		t.Errorf("second Register = %v, want ErrDuplicateChannel", err)
	}
	if _, ok := d.Get("missing"); ok {
		t.Error("Get returned true for an unknown channel")
	}
}

func TestDispatcher_SendUnknownChannel(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(0, nil)
	err := d.Send(context.Background(), message.OutboundMessage{Channel: "nope", Text: "hi"})
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("Send = %v, want ErrNoChannel", err)
	}
}

func TestDispatcher_SendChunksInOrder(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(10, nil)
	ch := NewMockChannel("console")
	_ = d.Register("console", ch)

	text := strings.Repeat("a", 10) + strings.Repeat("b", 10) + "c"
	if err := d.Send(context.Background(), message.OutboundMessage{Channel: "console", Text: text}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := ch.SentMessages()
	if len(sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(sent))
	}
	if sent[0].Text != strings.Repeat("a", 10) || sent[2].Text != "c" {
		t.Errorf("chunks out of order: %+v", sent)
	}
}

func TestDispatcher_SendStopsOnError(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(5, nil)
	ch := NewMockChannel("console")
	boom := errors.New("boom")
	ch.SendFunc = func(context.Context, message.OutboundMessage) error { return boom }
	_ = d.Register("console", ch)

	err := d.Send(context.Background(), message.OutboundMessage{Channel: "console", Text: "0123456789"})
	if !errors.Is(err, boom) {
		t.Fatalf("Send = %v, want boom", err)
	}
	if n := len(ch.SentMessages()); n != 1 {
		t.Errorf("attempted %d chunks, want 1", n)
	}
}

func TestDispatcher_SendEmptyIsNoop(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(0, nil)
	ch := NewMockChannel("console")
	_ = d.Register("console", ch)

	if err := d.Send(context.Background(), message.OutboundMessage{Channel: "console"}); err != nil {
		t.Fatal(err)
	}
	if n := len(ch.SentMessages()); n != 0 {
		t.Errorf("sent %d messages for empty text", n)
	}
}

func TestDispatcher_SetPresence(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(0, nil)
	a, b := NewMockChannel("a"), NewMockChannel("b")
	_ = d.Register("a", a)
	_ = d.Register("b", b)

	p := botconfig.Presence{Status: "online", Activity: "answering questions"}
	if err := d.SetPresence(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	for _, ch := range []*MockChannel{a, b} {
		got := ch.Presences()
		if len(got) != 1 || got[0] != p {
			t.Errorf("presences = %+v", got)
		}
	}
	if got := d.Channels(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Channels() = %v", got)
	}
}

func TestStartTypingLoop(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(0, nil)
	ch := NewMockChannel("console")
	_ = d.Register("console", ch)

	tc, ok := d.Typing("console")
	if !ok {
		t.Fatal("mock channel should support typing")
	}
	ctx, cancel := context.WithCancel(context.Background())
	StartTypingLoop(ctx, tc, message.Chat{ID: "c1"}, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for len(ch.TypingChats()) < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if len(ch.TypingChats()) < 2 {
		t.Fatalf("typing indicators = %d, want >= 2", len(ch.TypingChats()))
	}
}
