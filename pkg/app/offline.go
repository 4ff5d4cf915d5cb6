package app

import (
	"log/slog"

	"github.com/ytclab/ytcbot/internal/admin"
	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/config"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/workspace"
)

// Offline gives administrative access to the stores of a stopped bot.
type Offline struct {
	Admin     *admin.Service
	Workspace *workspace.Workspace

	app *core.App
}

// OpenOffline opens the bot config, persona overrides and durable memory
// named by cfg without loading channels or providers. Close releases the
// memory backend.
func OpenOffline(cfg *config.Config, dataDir string, logger *slog.Logger) (*Offline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	ws := workspace.New(dataDir)
	if err := ws.EnsureStructure(); err != nil {
		return nil, err
	}

	settings, err := botconfig.Load(cfg.BotConfig, logger)
	if err != nil {
		return nil, err
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	application := core.NewApp(appCtx)
	if cfg.Memory.Backend != config.MemoryBackendFile {
		if err := application.LoadModules([]string{cfg.Memory.Backend}); err != nil {
			return nil, err
		}
	}
	if err := application.Start(); err != nil {
		return nil, err
	}

	log, err := memoryLog(application, cfg, ws, logger)
	if err != nil {
		application.Stop()
		return nil, err
	}
	mem, personas := newStores(cfg, settings, ws, log, logger)

	return &Offline{
		Admin:     admin.New(settings, personas, mem, logger),
		Workspace: ws,
		app:       application,
	}, nil
}

// Close stops the memory backend.
func (o *Offline) Close() {
	o.app.Stop()
}
