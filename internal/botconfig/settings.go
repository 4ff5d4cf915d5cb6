// Package botconfig holds the process-wide bot settings: system prompt,
// global persona, model, feature flags, command prefix and presence.
//
// Settings are immutable values. The only way to change them is
// Store.Update, which persists the new document before publishing it, so
// the in-memory value and the file on disk never disagree after a restart.
package botconfig

// DefaultPrefix is the command prefix used when the document has none.
const DefaultPrefix = "!"

// DefaultModel is the model requested when the document has none.
const DefaultModel = "gemini-1.5-flash"

// Presence is the status a channel shows for the bot, where supported.
type Presence struct {
	Status   string `json:"status,omitempty"`
	Activity string `json:"activity,omitempty"`
}

// Settings is one immutable snapshot of the bot configuration document.
type Settings struct {
	SystemPrompt    string   `json:"system_prompt"`
	Personality     string   `json:"personality"`
	Model           string   `json:"model"`
	ChatMemory      bool     `json:"chat_memory"`
	UseSearchEngine bool     `json:"use_search_engine"`
	Prefix          string   `json:"prefix"`
	Presence        Presence `json:"presence"`
}

// Defaults returns the settings of an empty document.
func Defaults() Settings { return Settings{}.withDefaults() }

// withDefaults fills the fields an older document may lack.
func (s Settings) withDefaults() Settings {
	if s.Prefix == "" {
		s.Prefix = DefaultPrefix
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}
	return s
}

// Mutator edits a copy of the settings. Returning an error aborts the
// update and leaves both the file and the published value untouched.
type Mutator func(*Settings) error

// SetSystemPrompt returns a mutator replacing the system prompt.
func SetSystemPrompt(text string) Mutator {
	return func(s *Settings) error {
		s.SystemPrompt = text
		return nil
	}
}

// SetPersonality returns a mutator replacing the global persona.
func SetPersonality(text string) Mutator {
	return func(s *Settings) error {
		s.Personality = text
		return nil
	}
}
