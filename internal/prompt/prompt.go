// Package prompt assembles the text sent to the model for a chat turn.
package prompt

import "strings"

// Section headers. Their wording steers the model; their order is fixed.
const (
	HeaderHistory   = "### Conversation history:"
	HeaderReference = "### Reference material:"
	HeaderUser      = "### User %s:"
	ReplyCue        = "### Your reply:"
)

// Parts are the inputs of one prompt. Empty fields omit their section.
type Parts struct {
	SystemPrompt string
	Persona      string
	Memory       string
	Search       string
	AuthorNick   string
	UserText     string
}

// Build returns the prompt for p. Sections appear in this order, each
// only when its input is non-empty:
//
//  1. system prompt
//  2. persona
//  3. conversation history
//  4. reference material
//  5. the user's turn, followed by the reply cue
//
// The order never changes.
func Build(p Parts) string {
	sections := make([]string, 0, 6)

	if p.SystemPrompt != "" {
		sections = append(sections, p.SystemPrompt)
	}
	if p.Persona != "" {
		sections = append(sections, p.Persona)
	}
	if p.Memory != "" {
		sections = append(sections, HeaderHistory+"\n"+p.Memory)
	}
	if p.Search != "" {
		sections = append(sections, HeaderReference+"\n"+p.Search)
	}
	sections = append(sections,
		strings.Replace(HeaderUser, "%s", p.AuthorNick, 1)+"\n"+p.UserText,
		ReplyCue,
	)

	return strings.Join(sections, "\n\n")
}
