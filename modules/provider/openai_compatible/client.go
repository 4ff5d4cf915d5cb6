package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ytclab/ytcbot/internal/provider"
)

// Wire shapes of POST {base_url}/chat/completions. Only the fields the
// assistant reads are modelled.
type (
	chatRequest struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		Temperature *float64      `json:"temperature,omitempty"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatResponse struct {
		Choices []chatChoice `json:"choices"`
		Usage   chatUsage    `json:"usage"`
	}

	chatChoice struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}

	chatUsage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}
)

// newChatRequest wraps the composed prompt in a single user message. The
// per-request model hint is ignored: the server behind base_url decides
// which names it accepts, so only the configured model is sent.
func (p *Provider) newChatRequest(req provider.CompletionRequest) chatRequest {
	out := chatRequest{
		Model:       p.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   p.config.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	return out
}

func (r chatResponse) completion() provider.CompletionResponse {
	out := provider.CompletionResponse{
		Usage: provider.TokenUsage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		},
	}
	if len(r.Choices) > 0 {
		first := r.Choices[0]
		out.Text = first.Message.Content
		out.FinishReason = finishReason(first.FinishReason)
	}
	return out
}

var finishReasons = map[string]provider.FinishReason{
	"":               provider.FinishReasonStop,
	"stop":           provider.FinishReasonStop,
	"length":         provider.FinishReasonLength,
	"content_filter": provider.FinishReasonFiltering,
}

func finishReason(raw string) provider.FinishReason {
	if fr, ok := finishReasons[raw]; ok {
		return fr
	}
	return provider.FinishReason(raw)
}

// errorBodyLimit caps how much of a failed response is kept in the error.
const errorBodyLimit = 4 << 10

// post sends one chat request and decodes the reply. Failures are
// classified into the provider sentinels so the failover chain can tell
// retryable outages from caller mistakes.
func (p *Provider) post(ctx context.Context, body chatRequest) (chatResponse, error) {
	var out chatResponse

	payload, err := json.Marshal(body)
	if err != nil {
		return out, fmt.Errorf("encode chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("build chat request: %w", err)
	}
	p.setHeaders(httpReq.Header)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		return out, fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return out, classify(resp.StatusCode, raw)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode chat response: %w", err)
	}
	return out, nil
}

func (p *Provider) setHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		h.Set("Authorization", "Bearer "+p.apiKey)
	}
	for name, value := range p.config.Headers {
		h.Set(name, value)
	}
}

// apiError is the {"error": {...}} envelope. Some servers put a plain
// string in "error" instead, which leaves Detail empty.
type apiError struct {
	Detail struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (e apiError) code() string {
	if s, ok := e.Detail.Code.(string); ok {
		return s
	}
	return e.Detail.Type
}

func classify(status int, raw []byte) error {
	var envelope apiError
	_ = json.Unmarshal(raw, &envelope)
	cause := fmt.Errorf("HTTP %d: %s", status, bytes.TrimSpace(raw))

	var kind error
	switch {
	case status == http.StatusTooManyRequests:
		kind = provider.ErrRateLimit
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = provider.ErrAuth
	case status >= http.StatusInternalServerError:
		kind = provider.ErrProviderDown
	case status == http.StatusBadRequest && contextOverflow(envelope, raw):
		kind = provider.ErrContextLength
	default:
		return cause
	}
	return errors.Join(kind, cause)
}

var overflowHints = []string{"context length", "maximum context", "token limit"}

func contextOverflow(envelope apiError, raw []byte) bool {
	if envelope.code() == "context_length_exceeded" {
		return true
	}
	text := strings.ToLower(envelope.Detail.Message)
	if text == "" {
		text = strings.ToLower(string(raw))
	}
	for _, hint := range overflowHints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}
