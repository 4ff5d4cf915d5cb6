package openaicompat

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the provider.openai_compatible module block. The key is
// optional: local servers such as Ollama or vLLM usually run without one.
type Config struct {
	BaseURL   string            `yaml:"base_url"`
	APIKey    string            `yaml:"api_key"`
	APIKeyEnv string            `yaml:"api_key_env"`
	Model     string            `yaml:"model"`
	MaxTokens int               `yaml:"max_tokens"`
	Headers   map[string]string `yaml:"headers"`
	Timeout   time.Duration     `yaml:"timeout"`
}

func (c *Config) defaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = time.Minute
	}
}

// validate reports every problem at once, prefixed with the module ID.
func (c *Config) validate() error {
	var problems []error
	if c.BaseURL == "" {
		problems = append(problems, errors.New("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil {
		problems = append(problems, fmt.Errorf("base_url: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		problems = append(problems, fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme))
	}
	if c.Model == "" {
		problems = append(problems, errors.New("model is required"))
	}
	if c.MaxTokens < 0 {
		problems = append(problems, errors.New("max_tokens must not be negative"))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("provider.openai_compatible: %w", errors.Join(problems...))
}
