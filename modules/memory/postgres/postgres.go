// Package postgres stores the durable memory log in PostgreSQL through
// a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/security"
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

// Module registers a PostgreSQL-backed memory.Log under memory.ServiceLog.
type Module struct {
	config Config
	logger *slog.Logger
	log    *Log
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.postgres",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("postgres: decode config: %w", err)
	}
	m.config.defaults()
	return m.config.validate()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	security.RegisterSecret(ctx, m.config.DSN)

	l, err := Open(context.Background(), m.config)
	if err != nil {
		return err
	}
	m.log = l
	ctx.RegisterService(memory.ServiceLog, l)

	m.logger.Info("postgres memory log provisioned", "table", m.config.Table)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.log == nil {
		return fmt.Errorf("postgres: not provisioned")
	}
	if err := m.log.Ping(context.Background()); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.log != nil {
		m.log.Close()
	}
	return nil
}

// Log returns the provisioned log, or nil before Provision.
func (m *Module) Log() memory.Log {
	if m.log == nil {
		return nil
	}
	return m.log
}
