package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prefix    string
		text      string
		mentioned bool
		want      Invocation
		wantErr   error
	}{
		{name: "command with args", prefix: "!", text: "!YTC  hello there ", want: Invocation{Name: "YTC", Args: "hello there", Text: "YTC  hello there"}},
		{name: "command without args", prefix: "!", text: "!help", want: Invocation{Name: "help", Text: "help"}},
		{name: "multi line args", prefix: "!", text: "!set_system_prompt line one\nline two", want: Invocation{Name: "set_system_prompt", Args: "line one\nline two", Text: "set_system_prompt line one\nline two"}},
		{name: "unknown word keeps text", prefix: "!", text: "! what is Go?", want: Invocation{Name: "what", Args: "is Go?", Text: "what is Go?"}},
		{name: "mention", prefix: "!", text: "  what is Go? ", mentioned: true, want: Invocation{Text: "what is Go?"}},
		{name: "prefix wins over mention", prefix: "!", text: "!help", mentioned: true, want: Invocation{Name: "help", Text: "help"}},
		{name: "multi char prefix", prefix: "ytc.", text: "ytc.show_prompts", want: Invocation{Name: "show_prompts", Text: "show_prompts"}},
		{name: "bare prefix", prefix: "!", text: "!   ", wantErr: ErrEmptyInput},
		{name: "empty mention", prefix: "!", text: " ", mentioned: true, wantErr: ErrEmptyInput},
		{name: "not addressed", prefix: "!", text: "hello", wantErr: ErrNotAddressed},
		{name: "empty prefix needs mention", prefix: "", text: "hello", wantErr: ErrNotAddressed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.prefix, tt.text, tt.mentioned)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		if _, err := lookup(name); err != nil {
			t.Errorf("lookup(%q) = %v", name, err)
		}
	}
	if _, err := lookup("ytc"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("lookup is case insensitive: %v", err)
	}
}
