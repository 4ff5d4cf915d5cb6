package memory

import "strings"

// Render formats turns oldest first. Each turn is a fixed block:
//
//	User: <author>
//	Input: <input>
//	Reference: <reference>   (only when non-empty)
//	Reply: <reply>
//	Time: <timestamp>
//	<blank line>
//
// Prompt text downstream depends on this exact layout.
func Render(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("User: ")
		b.WriteString(t.Author)
		b.WriteString("\nInput: ")
		b.WriteString(t.Input)
		b.WriteByte('\n')
		if t.Reference != "" {
			b.WriteString("Reference: ")
			b.WriteString(t.Reference)
			b.WriteByte('\n')
		}
		b.WriteString("Reply: ")
		b.WriteString(t.Reply)
		b.WriteString("\nTime: ")
		b.WriteString(t.Timestamp)
		b.WriteString("\n\n")
	}
	return b.String()
}
