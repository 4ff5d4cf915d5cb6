// Package openaicompat provides a provider for any API that implements the
// OpenAI chat completions interface (Mistral, Groq, DeepSeek, vLLM,
// Ollama, LiteLLM) through a configurable base_url.
package openaicompat

import (
	"cmp"
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/provider"
	"github.com/ytclab/ytcbot/internal/security"
	"gopkg.in/yaml.v3"
)

const moduleID = "provider.openai_compatible"

func init() {
	core.RegisterModule(&Provider{})
}

var (
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
	_ provider.Provider = (*Provider)(nil)
)

// Provider talks to one OpenAI-compatible endpoint over plain HTTP.
type Provider struct {
	config Config
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: moduleID, New: func() core.Module { return new(Provider) }}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	err := node.Decode(&p.config)
	p.config.defaults()
	return err
}

// Provision resolves the key and builds the HTTP client.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger.With("provider", moduleID)
	p.apiKey = cmp.Or(p.config.APIKey, envOrEmpty(p.config.APIKeyEnv))
	security.RegisterSecret(ctx, p.apiKey)
	p.client = &http.Client{Timeout: p.config.Timeout}
	return nil
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Validate implements core.Validator.
func (p *Provider) Validate() error { return p.config.validate() }

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	resp, err := p.post(ctx, p.newChatRequest(req))
	if err != nil {
		p.logger.Debug("chat completion failed", "base_url", p.config.BaseURL, "error", err)
		return provider.CompletionResponse{}, err
	}
	return resp.completion(), nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string { return p.config.Model }
