package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StopTimeout bounds the whole shutdown sequence of an App.
const StopTimeout = 30 * time.Second

// App owns the loaded modules and drives them through Start and Stop.
// Modules start in load order and stop in reverse.
type App struct {
	ctx     *AppContext
	entries []*entry
	logger  *slog.Logger
}

type entry struct {
	id      ModuleID
	mod     Module
	running bool
}

// NewApp returns an App with no modules.
func NewApp(ctx *AppContext) *App {
	return &App{ctx: ctx, logger: ctx.Logger.With("component", "core")}
}

// LoadModules runs LoadModule for each ID in turn. If one fails, every
// module loaded so far is stopped and dropped.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.release()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.entries = append(a.entries, &entry{id: mod.ModuleInfo().ID, mod: mod})
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// AppendModule adds a module built outside the registry, such as the
// router, after the loaded ones. Call it before Start.
func (a *App) AppendModule(id ModuleID, mod Module) {
	a.entries = append(a.entries, &entry{id: id, mod: mod})
}

// Module finds a module by ID.
func (a *App) Module(id string) (Module, bool) {
	for _, e := range a.entries {
		if e.id == ModuleID(id) {
			return e.mod, true
		}
	}
	return nil, false
}

// Modules returns every module in load order.
func (a *App) Modules() []Module {
	mods := make([]Module, 0, len(a.entries))
	for _, e := range a.entries {
		mods = append(mods, e.mod)
	}
	return mods
}

// Start starts the modules in order. On failure the ones already running
// are stopped before the error is returned.
func (a *App) Start() error {
	for i, e := range a.entries {
		if s, ok := e.mod.(Starter); ok {
			a.logger.Info("starting module", "module", e.id)
			if err := s.Start(); err != nil {
				a.logger.Error("module start failed", "module", e.id, "error", err)
				a.stop(a.entries[:i])
				return fmt.Errorf("starting module %s: %w", e.id, err)
			}
		}
		e.running = true
	}
	a.logger.Info("all modules started", "count", len(a.entries))
	return nil
}

// Stop stops the running modules in reverse order. Errors are logged.
func (a *App) Stop() {
	a.stop(a.entries)
}

func (a *App) stop(entries []*entry) {
	ctx, cancel := context.WithTimeout(context.Background(), StopTimeout)
	defer cancel()

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.running {
			continue
		}
		e.running = false
		a.stopOne(ctx, e)
	}
}

func (a *App) stopOne(ctx context.Context, e *entry) {
	s, ok := e.mod.(Stopper)
	if !ok {
		return
	}
	a.logger.Info("stopping module", "module", e.id)
	if err := s.Stop(ctx); err != nil {
		a.logger.Error("module stop failed", "module", e.id, "error", err)
	}
}

// release stops every loaded module whether or not it was started; a
// provisioned module may already hold files or connections.
func (a *App) release() {
	ctx, cancel := context.WithTimeout(context.Background(), StopTimeout)
	defer cancel()

	for i := len(a.entries) - 1; i >= 0; i-- {
		a.stopOne(ctx, a.entries[i])
	}
	a.entries = nil
}
