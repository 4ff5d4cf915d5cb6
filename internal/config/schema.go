// Package config loads and validates the process configuration file,
// ytcbot.yaml. Bot behaviour settings live in the separate bot config
// document handled by package botconfig.
package config

import (
	"time"

	"github.com/ytclab/ytcbot/internal/observability"
	"github.com/ytclab/ytcbot/internal/provider"
	"github.com/ytclab/ytcbot/internal/router"
	"github.com/ytclab/ytcbot/internal/security"
	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file name.
const FileName = "ytcbot.yaml"

// DefaultBotConfig is the bot config document used when bot_config is unset.
const DefaultBotConfig = "bot_config.json"

// DefaultModelTimeout bounds a model call when assistant.model_timeout is unset.
const DefaultModelTimeout = 60 * time.Second

// MemoryBackendFile keeps durable history in per-scope JSON files.
const MemoryBackendFile = "file"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Only "1" is supported.
	Version string `yaml:"version"`

	// BotConfig is the path of the bot config JSON document. Relative
	// paths are resolved against the directory of the config file.
	BotConfig string `yaml:"bot_config"`

	// DataDir holds personas and durable memory. Empty means the XDG
	// data directory.
	DataDir string `yaml:"data_dir"`

	Log       LogConfig                   `yaml:"log"`
	Assistant AssistantConfig             `yaml:"assistant"`
	Memory    MemoryConfig                `yaml:"memory"`
	Search    SearchConfig                `yaml:"search"`
	Tracing   observability.TracingConfig `yaml:"tracing"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "provider.gemini").
	Modules map[string]yaml.Node `yaml:"modules"`

	// path is the file this config was loaded from.
	path string
}

// Path returns the file the config was loaded from, empty when built in code.
func (c *Config) Path() string { return c.path }

// LogConfig configures the root logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`
	// Format is text or json. Default: text.
	Format string `yaml:"format"`
}

// AssistantConfig tunes the chat pipeline.
type AssistantConfig struct {
	// ModelTimeout bounds one model call. Default: 60s.
	ModelTimeout time.Duration `yaml:"model_timeout"`

	// Providers lists provider module IDs in failover order. Empty means
	// every configured provider.* module, sorted by ID.
	Providers []string `yaml:"providers"`
	// Cooldown is how long a provider that failed transiently is skipped.
	Cooldown provider.Cooldown `yaml:"cooldown"`

	Workers   int `yaml:"workers"`
	InboxSize int `yaml:"inbox_size"`

	// Admins, when non-empty, restricts settings commands to these sender IDs.
	Admins []string `yaml:"admins"`

	RateLimit security.RateLimitConfig `yaml:"rate_limit"`
	Policy    router.Policy            `yaml:"policy"`
}

// MemoryConfig configures both memory layers.
type MemoryConfig struct {
	// Backend is "file" or the ID of a memory.* module. Default: file.
	Backend string `yaml:"backend"`

	MaxMemories     int    `yaml:"max_memories"`
	RecentCount     int    `yaml:"recent_count"`
	HistoryFallback string `yaml:"history_fallback"`

	// PruneSchedule is the cron expression of the volatile prune job.
	PruneSchedule string `yaml:"prune_schedule"`
	// MaxIdle is how long a volatile window survives without activity.
	MaxIdle time.Duration `yaml:"max_idle"`
}

// SearchConfig configures the search decision and its result cache.
type SearchConfig struct {
	// DecisionTimeout bounds the search decision call. Default: assistant.model_timeout.
	DecisionTimeout time.Duration `yaml:"decision_timeout"`
	CacheEntries    int64         `yaml:"cache_entries"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}
