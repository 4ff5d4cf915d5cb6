// Package security keeps secrets out of logs and limits how fast one
// sender can spend model calls.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|api_key|apikey|credential|dsn)`)

// Redactor replaces secrets in strings: known API key formats by pattern,
// and runtime credentials by literal value. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddLiteral registers a secret value to redact wherever it appears.
// Values shorter than 8 bytes are ignored; they would mangle ordinary text.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < 8 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.literals {
		if l == secret {
			return
		}
	}
	r.literals = append(r.literals, secret)
}

// Redact returns s with every known secret replaced by RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns, literals := r.patterns, r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap redacts m in place: values under secret-looking keys are
// replaced outright, other strings go through Redact. Nested maps and
// slices are walked. Used when echoing configuration back to operators.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && secretKeyPattern.MatchString(k) {
			m[k] = RedactPlaceholder
			continue
		}
		m[k] = r.redactValue(v)
	}
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return r.Redact(val)
	case map[string]any:
		r.RedactMap(val)
	case []any:
		for i := range val {
			val[i] = r.redactValue(val[i])
		}
	}
	return v
}

// DefaultPatterns returns patterns for the credential formats the bot
// handles: model provider keys and HTTP bearer tokens.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Google AI Studio / Gemini
		regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
		// Anthropic, checked before the generic sk- form
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9_\-]{20,}`),
		// OpenAI and compatible gateways
		regexp.MustCompile(`sk-[a-zA-Z0-9_\-]{20,}`),
		// Authorization headers
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]{16,}`),
		// Credentials embedded in connection URLs
		regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`),
	}
}
