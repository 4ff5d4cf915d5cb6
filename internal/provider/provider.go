// Package provider defines the model capability the assistant consumes:
// one prompt in, one text reply out. Concrete backends live under
// modules/provider and also implement core.Module.
package provider

import (
	"context"
	"fmt"
)

// Provider generates text from a prompt.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	// Implementations map transport failures onto the sentinel errors in
	// this package so callers can tell transient from permanent failures.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the default model.
	ModelName() string
}

// Generate is the shorthand used by callers that only need text:
// generate(prompt, temperature) -> text | error.
func Generate(ctx context.Context, p Provider, model, prompt string, temperature float64) (string, error) {
	if p == nil {
		return "", ErrNoProvider
	}
	resp, err := p.Complete(ctx, CompletionRequest{
		Model:       model,
		Prompt:      prompt,
		Temperature: Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("provider: generate: %w", err)
	}
	return resp.Text, nil
}
