package prompt

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuild_Minimal(t *testing.T) {
	t.Parallel()

	got := Build(Parts{SystemPrompt: "You are YTC.", AuthorNick: "Ann", UserText: "hi"})
	want := "You are YTC.\n\n### User Ann:\nhi\n\n### Your reply:"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Full(t *testing.T) {
	t.Parallel()

	got := Build(Parts{
		SystemPrompt: "SYS",
		Persona:      "PERSONA",
		Memory:       "MEM",
		Search:       "SEARCH",
		AuthorNick:   "Ann",
		UserText:     "question",
	})
	want := "SYS\n\nPERSONA\n\n" +
		"### Conversation history:\nMEM\n\n" +
		"### Reference material:\nSEARCH\n\n" +
		"### User Ann:\nquestion\n\n### Your reply:"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_NoSystemPrompt(t *testing.T) {
	t.Parallel()

	got := Build(Parts{AuthorNick: "Ann", UserText: "hi"})
	if !strings.HasPrefix(got, "### User Ann:") {
		t.Errorf("Build() = %q, want the user turn first", got)
	}
}

// sectionStarts returns the offsets of each marker in text, in marker
// order, or nil when one is missing.
func sectionStarts(text string, markers []string) []int {
	out := make([]int, 0, len(markers))
	for _, m := range markers {
		i := strings.Index(text, m)
		if i < 0 {
			return nil
		}
		out = append(out, i)
	}
	return out
}

func TestBuild_AddingInputsInsertsOneSectionWithoutReordering(t *testing.T) {
	t.Parallel()

	base := Parts{SystemPrompt: "SYS", AuthorNick: "Ann", UserText: "hi"}
	steps := []struct {
		name  string
		apply func(*Parts)
		mark  string
	}{
		{"persona", func(p *Parts) { p.Persona = "PERSONA" }, "PERSONA"},
		{"search", func(p *Parts) { p.Search = "SEARCH" }, HeaderReference},
		{"memory", func(p *Parts) { p.Memory = "MEM" }, HeaderHistory},
	}
	// Canonical order of every marker once all inputs are present.
	canonical := []string{"SYS", "PERSONA", HeaderHistory, HeaderReference, "### User Ann:", ReplyCue}

	present := map[string]bool{"SYS": true, "### User Ann:": true, ReplyCue: true}
	prevSections := strings.Count(Build(base), "\n\n") + 1

	for _, step := range steps {
		step.apply(&base)
		present[step.mark] = true
		text := Build(base)

		sections := strings.Count(text, "\n\n") + 1
		if sections != prevSections+1 {
			t.Errorf("after %s: %d sections, want %d", step.name, sections, prevSections+1)
		}
		prevSections = sections

		var expected []string
		for _, m := range canonical {
			if present[m] {
				expected = append(expected, m)
			}
		}
		starts := sectionStarts(text, expected)
		if starts == nil {
			t.Fatalf("after %s: missing a section in %q", step.name, text)
		}
		for i := 1; i < len(starts); i++ {
			if starts[i] <= starts[i-1] {
				t.Errorf("after %s: %q appears before %q", step.name, expected[i], expected[i-1])
			}
		}
	}
}
