package provider

import "strings"

// FinishReason describes why the model stopped generating.
type FinishReason string

// FinishReason constants for model completion termination.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonFiltering FinishReason = "filtering"
)

// CompletionRequest is the input to Provider.Complete. The whole
// conversation context is already folded into Prompt.
type CompletionRequest struct {
	// Model is a hint from the bot config. A provider uses it only when it
	// names one of its own models and otherwise keeps its configured one.
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ModelFor returns req.Model when it starts with family, or fallback.
func (r CompletionRequest) ModelFor(family, fallback string) string {
	if r.Model != "" && strings.HasPrefix(r.Model, family) {
		return r.Model
	}
	return fallback
}

// CompletionResponse is the output of Provider.Complete.
type CompletionResponse struct {
	Text         string       `json:"text"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        TokenUsage   `json:"usage"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 { return &v }
