package postgres

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultTable          = "memory_turns"
	defaultConnectTimeout = 10 * time.Second
)

// Config holds the PostgreSQL memory log configuration.
type Config struct {
	// DSN is a libpq-style connection string or postgres:// URL.
	DSN string `yaml:"dsn"`

	// Table holds every scope's turns. Defaults to memory_turns.
	Table string `yaml:"table"`

	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32 `yaml:"max_conns"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func (c *Config) defaults() {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
}

func (c *Config) validate() error {
	if c.DSN == "" {
		return errors.New("postgres: dsn is required")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("postgres: max_conns must be non-negative, got %d", c.MaxConns)
	}
	return nil
}
