package gemini

import "time"

const (
	defaultModel   = "gemini-1.5-flash"
	defaultKeyEnv  = "GEMINI_API_KEY"
	defaultTimeout = 60 * time.Second
)

// Config holds the YAML-decoded configuration for the Gemini provider.
type Config struct {
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int32         `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultKeyEnv
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}
