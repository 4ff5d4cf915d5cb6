// Package gemini implements the provider.gemini module on top of the
// Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/provider"
	"github.com/ytclab/ytcbot/internal/security"
	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gemini{})
}

var (
	_ core.Module       = (*Gemini)(nil)
	_ core.Configurable = (*Gemini)(nil)
	_ core.Provisioner  = (*Gemini)(nil)
	_ core.Validator    = (*Gemini)(nil)
	_ provider.Provider = (*Gemini)(nil)
)

// Gemini is the provider.gemini module.
type Gemini struct {
	config Config
	client *genai.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (g *Gemini) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.gemini",
		New: func() core.Module { return &Gemini{} },
	}
}

// Configure implements core.Configurable.
func (g *Gemini) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("provider.gemini: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gemini) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.logger = ctx.Logger

	apiKey := g.config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(g.config.APIKeyEnv)
	}
	if apiKey == "" {
		return fmt.Errorf("provider.gemini: no api key (set api_key or %s)", g.config.APIKeyEnv)
	}

	security.RegisterSecret(ctx, apiKey)

	client, err := newClient(context.Background(), apiKey, g.config)
	if err != nil {
		return err
	}
	g.client = client
	return nil
}

func newClient(ctx context.Context, apiKey string, cfg Config) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("provider.gemini: create client: %w", err)
	}
	return client, nil
}

// Validate implements core.Validator.
func (g *Gemini) Validate() error {
	if g.config.Model == "" {
		return errors.New("provider.gemini: model must not be empty")
	}
	if g.client == nil {
		return errors.New("provider.gemini: client not initialized (Provision not called)")
	}
	return nil
}

// ModelName implements provider.Provider.
func (g *Gemini) ModelName() string {
	return g.config.Model
}

// Complete implements provider.Provider.
func (g *Gemini) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	gc := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	switch {
	case req.MaxTokens > 0:
		gc.MaxOutputTokens = int32(req.MaxTokens)
	case g.config.MaxTokens > 0:
		gc.MaxOutputTokens = g.config.MaxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx,
		req.ModelFor("gemini", g.config.Model),
		genai.Text(req.Prompt),
		gc,
	)
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}
	return convertResponse(resp), nil
}

func convertResponse(resp *genai.GenerateContentResponse) provider.CompletionResponse {
	out := provider.CompletionResponse{
		Text:         resp.Text(),
		FinishReason: provider.FinishReasonStop,
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonMaxTokens:
			out.FinishReason = provider.FinishReasonLength
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			out.FinishReason = provider.FinishReasonFiltering
		}
	} else if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		out.FinishReason = provider.FinishReasonFiltering
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = provider.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out
}
