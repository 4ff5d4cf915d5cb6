package anthropic

import (
	"context"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/ytclab/ytcbot/internal/provider"
)

// Complete implements provider.Provider.
func (a *Anthropic) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	msg, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		return provider.CompletionResponse{}, classifyError(err)
	}
	return completionFrom(msg), nil
}

// params sends the composed prompt as the only user turn. A model hint is
// honoured only when it names a Claude model.
func (a *Anthropic) params(req provider.CompletionRequest) sdkanthropic.MessageNewParams {
	limit := a.config.MaxTokens
	if req.MaxTokens > 0 {
		limit = req.MaxTokens
	}
	p := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(req.ModelFor("claude", a.config.Model)),
		MaxTokens: int64(limit),
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(req.Prompt)),
		},
	}
	// The bot's temperature scale goes to 2, the Messages API stops at 1.
	if t := req.Temperature; t != nil {
		p.Temperature = sdkanthropic.Float(min(*t, 1))
	}
	return p
}

func completionFrom(msg *sdkanthropic.Message) provider.CompletionResponse {
	var text strings.Builder
	for _, block := range msg.Content {
		tb, ok := block.AsAny().(sdkanthropic.TextBlock)
		if !ok {
			continue
		}
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(tb.Text)
	}

	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return provider.CompletionResponse{
		Text:         text.String(),
		FinishReason: finishFrom(msg.StopReason),
		Usage:        provider.TokenUsage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}
}

func finishFrom(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	}
	return provider.FinishReasonStop
}
