package sqlite

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const dbFileName = "memory.db"

var journalModes = []string{"wal", "delete", "truncate", "persist", "memory"}

// Config is the memory.sqlite module block. Path defaults to memory.db
// under the data directory.
type Config struct {
	Path        string        `yaml:"path"`
	JournalMode string        `yaml:"journal_mode"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	c.JournalMode = strings.ToLower(c.JournalMode)
	if c.JournalMode == "" {
		c.JournalMode = "wal"
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if !slices.Contains(journalModes, c.JournalMode) {
		return fmt.Errorf("sqlite: journal_mode %q must be one of %v", c.JournalMode, journalModes)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must not be negative, got %s", c.BusyTimeout)
	}
	return nil
}

// pragmas are run on the single connection right after it is opened.
func (c *Config) pragmas() []string {
	return []string{
		"PRAGMA journal_mode=" + strings.ToUpper(c.JournalMode),
		fmt.Sprintf("PRAGMA busy_timeout=%d", c.BusyTimeout.Milliseconds()),
	}
}
