// Package anthropic implements the provider.anthropic module on top of
// the Anthropic Messages API.
package anthropic

import (
	"cmp"
	"errors"
	"log/slog"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/provider"
	"github.com/ytclab/ytcbot/internal/security"
	"gopkg.in/yaml.v3"
)

const moduleID = "provider.anthropic"

func init() {
	core.RegisterModule(&Anthropic{})
}

var (
	_ core.Configurable = (*Anthropic)(nil)
	_ core.Provisioner  = (*Anthropic)(nil)
	_ core.Validator    = (*Anthropic)(nil)
	_ provider.Provider = (*Anthropic)(nil)
)

// Anthropic answers completions with a Claude model.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: moduleID, New: func() core.Module { return new(Anthropic) }}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	err := node.Decode(&a.config)
	a.config.defaults()
	return err
}

// Provision builds the SDK client. SDK retries are disabled: a failed
// call goes back to the failover set, which decides whether to retry.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.config.defaults()
	a.logger = ctx.Logger.With("provider", moduleID)

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(a.config.Timeout),
	}
	if key := cmp.Or(a.config.APIKey, os.Getenv(a.config.APIKeyEnv)); key != "" {
		security.RegisterSecret(ctx, key)
		opts = append(opts, option.WithAPIKey(key))
	}
	if a.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.config.BaseURL))
	}

	client := sdkanthropic.NewClient(opts...)
	a.client = &client
	return nil
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	switch {
	case a.config.Model == "":
		return errors.New(moduleID + ": model is required")
	case a.client == nil:
		return errors.New(moduleID + ": not provisioned")
	}
	return nil
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string { return a.config.Model }
