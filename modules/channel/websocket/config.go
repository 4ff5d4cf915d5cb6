package wschannel

import (
	"errors"
	"time"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultMaxSessions       = 64
	defaultHelloTimeout      = 10 * time.Second
	defaultReadLimit         = 64 << 10
	maxMissedHeartbeats      = 3
)

// Config holds YAML configuration for the websocket channel.
type Config struct {
	// Tokens, when set, must contain the token a client sends in its hello.
	Tokens            []string      `yaml:"tokens"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MaxSessions       int           `yaml:"max_sessions"`
	HelloTimeout      time.Duration `yaml:"hello_timeout"`
	// OriginPatterns are host patterns accepted besides same-origin.
	OriginPatterns []string `yaml:"origin_patterns"`
	ReadLimit      int64    `yaml:"read_limit"`
}

func (c *Config) defaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = defaultMaxSessions
	}
	if c.HelloTimeout <= 0 {
		c.HelloTimeout = defaultHelloTimeout
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = defaultReadLimit
	}
}

func (c *Config) validate() error {
	if c.MaxSessions < 0 {
		return errors.New("websocket: max_sessions must be non-negative")
	}
	return nil
}
