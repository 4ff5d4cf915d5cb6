// Package sqlite stores the durable memory log in a SQLite database
// using modernc.org/sqlite (pure Go, no CGO).
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/memory"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module registers a SQLite-backed memory.Log under memory.ServiceLog.
type Module struct {
	config Config
	logger *slog.Logger
	log    *Log
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, dbFileName)
	}

	l, err := Open(context.Background(), m.config)
	if err != nil {
		return err
	}
	m.log = l
	ctx.RegisterService(memory.ServiceLog, l)

	m.logger.Info("sqlite memory log provisioned",
		"path", m.config.Path,
		"journal_mode", m.config.JournalMode,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if m.log == nil {
		return fmt.Errorf("sqlite: not provisioned")
	}
	if err := m.log.Ping(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.log == nil {
		return nil
	}
	if m.logger != nil {
		m.logger.Info("sqlite memory log stopping")
	}
	return m.log.Close()
}

// Log returns the provisioned log, or nil before Provision.
func (m *Module) Log() memory.Log {
	if m.log == nil {
		return nil
	}
	return m.log
}
