package search

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NoQuery is the query value the model uses to say "nothing to look up".
const NoQuery = "無"

// Verdict is the model's decision on whether to search.
type Verdict struct {
	Search bool   `json:"search"`
	Query  string `json:"query"`
}

// Wants reports whether the verdict calls for a search with a usable query.
func (v Verdict) Wants() bool {
	q := strings.TrimSpace(v.Query)
	return v.Search && q != "" && q != NoQuery
}

// ParseVerdict extracts the verdict from free-form model output. It takes
// the span from the first '{' to the last '}', lowercases Python-style
// True/False literals, and requires both fields to be present.
func ParseVerdict(raw string) (Verdict, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return Verdict{}, ErrNoVerdict
	}
	body := raw[start : end+1]
	body = strings.NewReplacer("True", "true", "False", "false").Replace(body)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrMalformedVerdict, err)
	}
	searchRaw, okSearch := fields["search"]
	queryRaw, okQuery := fields["query"]
	if !okSearch || !okQuery {
		return Verdict{}, ErrIncompleteVerdict
	}

	var v Verdict
	if err := json.Unmarshal(searchRaw, &v.Search); err != nil {
		return Verdict{}, fmt.Errorf("%w: search: %w", ErrMalformedVerdict, err)
	}
	if err := json.Unmarshal(queryRaw, &v.Query); err != nil {
		return Verdict{}, fmt.Errorf("%w: query: %w", ErrMalformedVerdict, err)
	}
	return v, nil
}
