package provider

import "testing"

func TestCompletionRequest_ModelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model string
		want  string
	}{
		{name: "no hint", model: "", want: "fallback"},
		{name: "matching family", model: "gemini-2.0-flash", want: "gemini-2.0-flash"},
		{name: "foreign family", model: "claude-haiku", want: "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := CompletionRequest{Model: tt.model}
			if got := req.ModelFor("gemini", "fallback"); got != tt.want {
				t.Errorf("ModelFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
