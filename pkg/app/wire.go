package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ytclab/ytcbot/internal/admin"
	"github.com/ytclab/ytcbot/internal/assistant"
	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/channel"
	"github.com/ytclab/ytcbot/internal/command"
	"github.com/ytclab/ytcbot/internal/config"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/cron"
	"github.com/ytclab/ytcbot/internal/gateway"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/observability"
	"github.com/ytclab/ytcbot/internal/persona"
	"github.com/ytclab/ytcbot/internal/provider"
	"github.com/ytclab/ytcbot/internal/reload"
	"github.com/ytclab/ytcbot/internal/router"
	"github.com/ytclab/ytcbot/internal/search"
	"github.com/ytclab/ytcbot/internal/security"
	"github.com/ytclab/ytcbot/internal/workspace"
)

// BuildOptions carries the process-wide collaborators Build does not own.
type BuildOptions struct {
	Logger   *slog.Logger
	Redactor *security.Redactor
	// Metrics defaults to a fresh registry under the "ytcbot" namespace.
	Metrics *observability.Metrics
	// DataDir overrides cfg.DataDir.
	DataDir string
}

// Runtime is a fully wired bot, ready to Start.
type Runtime struct {
	App        *core.App
	Context    *core.AppContext
	Workspace  *workspace.Workspace
	Settings   *botconfig.Store
	Memory     *memory.Store
	Personas   *persona.Store
	Admin      *admin.Service
	Providers  *provider.Failover
	Router     *router.Router
	Dispatcher *channel.Dispatcher
	Scheduler  *cron.Scheduler
	Metrics    *observability.Metrics

	logger *slog.Logger
}

// memoryBackend is implemented by memory.* modules.
type memoryBackend interface {
	Log() memory.Log
}

// doneNotifier is implemented by channels that can end on their own, such
// as the console when stdin closes.
type doneNotifier interface {
	Done() <-chan struct{}
}

// Build loads the configured modules and wires the chat pipeline between
// them: channels feed the router, the router runs commands and assistant
// turns, and replies go back out through the dispatcher. Nothing is
// started.
func Build(cfg *config.Config, opts BuildOptions) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	redactor := opts.Redactor
	if redactor == nil {
		redactor = security.NewRedactor()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics("ytcbot")
	}

	dataDir := opts.DataDir
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
	appCtx.RegisterService(gateway.ServiceConfig, cfg)
	appCtx.RegisterService(gateway.ServiceRedactor, redactor)
	appCtx.RegisterService(gateway.ServiceMetrics, metrics.Handler())

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		return nil, err
	}

	rt := &Runtime{
		App:       application,
		Context:   appCtx,
		Workspace: ws,
		Settings:  settings,
		Metrics:   metrics,
		logger:    logger.With("component", "app"),
	}

	log, err := memoryLog(application, cfg, ws, logger)
	if err != nil {
		return nil, err
	}
	rt.Memory, rt.Personas = newStores(cfg, settings, ws, log, logger)
	rt.Admin = admin.New(settings, rt.Personas, rt.Memory, logger)

	rt.Providers, err = wireProviders(application, cfg, logger)
	if err != nil {
		return nil, err
	}

	searcher, err := search.NewCached(search.Stub{Logger: logger.With("component", "search")}, search.CacheConfig{
		MaxEntries: cfg.Search.CacheEntries,
		TTL:        cfg.Search.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("app: search cache: %w", err)
	}
	application.AppendModule("search", &searchModule{cache: searcher})
	engine := &search.Engine{
		Provider:   rt.Providers,
		Searcher:   searcher,
		Settings:   settings.Current,
		Memory:     rt.Memory,
		Timeout:    cfg.Search.DecisionTimeout,
		Logger:     logger,
		OnDecision: metrics.ObserveSearchDecision,
	}

	bot := assistant.New(assistant.Deps{
		Provider: rt.Providers,
		Settings: settings,
		Personas: rt.Personas,
		Memory:   rt.Memory,
		Search:   engine,
		Observer: metrics,
		Logger:   logger,
	}, assistant.Config{ModelTimeout: cfg.Assistant.ModelTimeout})

	handler := command.NewHandler(command.Deps{
		Settings:  settings,
		Admin:     rt.Admin,
		Assistant: bot,
		Observer:  metrics,
		Logger:    logger,
		Admins:    cfg.Assistant.Admins,
	})

	limiter := security.NewRateLimiter(cfg.Assistant.RateLimit)
	if err := rt.wireRouter(cfg, handler, limiter); err != nil {
		return nil, err
	}
	if err := rt.wireHousekeeping(cfg, limiter); err != nil {
		return nil, err
	}
	if err := rt.wireReload(); err != nil {
		return nil, err
	}

	appCtx.RegisterService(gateway.ServiceAdmin, rt.Admin)
	appCtx.RegisterService(gateway.ServiceRouter, rt.Router)
	appCtx.RegisterService(gateway.ServiceChannels, rt.Dispatcher)
	appCtx.RegisterService(gateway.ServiceProviders, rt.Providers)
	appCtx.RegisterService(gateway.ServiceJobs, rt.Scheduler)
	return rt, nil
}

// memoryLog picks the durable history backend named by memory.backend.
func memoryLog(application *core.App, cfg *config.Config, ws *workspace.Workspace, logger *slog.Logger) (memory.Log, error) {
	if cfg.Memory.Backend == config.MemoryBackendFile {
		return memory.NewFileLog(ws.MemoryDir(), logger), nil
	}
	mod, ok := application.Module(cfg.Memory.Backend)
	if !ok {
		return nil, fmt.Errorf("app: memory backend %s not loaded", cfg.Memory.Backend)
	}
	backend, ok := mod.(memoryBackend)
	if !ok {
		return nil, fmt.Errorf("app: module %s is not a memory backend", cfg.Memory.Backend)
	}
	log := backend.Log()
	if log == nil {
		return nil, fmt.Errorf("app: memory backend %s not provisioned", cfg.Memory.Backend)
	}
	return log, nil
}

func newStores(cfg *config.Config, settings *botconfig.Store, ws *workspace.Workspace, log memory.Log, logger *slog.Logger) (*memory.Store, *persona.Store) {
	mem := memory.NewStore(log, memory.Config{
		MaxMemories: cfg.Memory.MaxMemories,
		RecentCount: cfg.Memory.RecentCount,
		Fallback:    memory.HistoryFallback(cfg.Memory.HistoryFallback),
	}, logger)
	personas := persona.NewStore(ws.PersonaDir(), func() string {
		return settings.Current().Personality
	}, logger)
	return mem, personas
}

// wireProviders assembles the failover set in assistant.providers order.
func wireProviders(application *core.App, cfg *config.Config, logger *slog.Logger) (*provider.Failover, error) {
	var entries []provider.Entry
	for _, id := range config.ProviderIDs(cfg) {
		mod, ok := application.Module(id)
		if !ok {
			return nil, fmt.Errorf("app: provider %s not loaded", id)
		}
		p, ok := mod.(provider.Provider)
		if !ok {
			return nil, fmt.Errorf("app: module %s is not a provider", id)
		}
		entries = append(entries, provider.Entry{Name: id, Provider: p, Cooldown: cfg.Assistant.Cooldown})
		logger.Info("provider registered", "module", id, "model", p.ModelName())
	}
	return provider.NewFailover(entries, logger)
}

// wireRouter registers every channel module with the dispatcher, builds
// the router and points each channel's inbox at it.
func (rt *Runtime) wireRouter(cfg *config.Config, handler router.Handler, limiter *security.RateLimiter) error {
	rt.Dispatcher = channel.NewDispatcher(channel.MaxMessageLength, rt.logger)

	var channels []channel.Channel
	for _, mod := range rt.App.Modules() {
		ch, ok := mod.(channel.Channel)
		if !ok {
			continue
		}
		// Channels tag inbound messages with their short name.
		name := strings.TrimPrefix(string(mod.ModuleInfo().ID), "channel.")
		if err := rt.Dispatcher.Register(name, ch); err != nil {
			return fmt.Errorf("app: registering channel %s: %w", name, err)
		}
		channels = append(channels, ch)
		rt.logger.Info("channel registered", "channel", name)
	}
	if len(channels) == 0 {
		rt.logger.Warn("no channel modules configured, the bot will not receive messages")
	}

	r, err := router.NewRouter(router.Config{
		WorkerCount:    cfg.Assistant.Workers,
		InboxSize:      cfg.Assistant.InboxSize,
		Policy:         cfg.Assistant.Policy,
		Handler:        handler,
		ResponseSender: rt.Dispatcher,
		Typing:         rt.Dispatcher,
		Observer:       rt.Metrics,
		Limiter:        limiter,
		Logger:         rt.logger,
		ErrorText:      command.ErrorText,
	})
	if err != nil {
		return fmt.Errorf("app: creating router: %w", err)
	}
	rt.Router = r

	for _, ch := range channels {
		ch.SetInbox(r.Submit)
	}
	rt.App.AppendModule("router", &routerModule{router: r})
	return nil
}

// wireHousekeeping schedules the volatile prune job.
func (rt *Runtime) wireHousekeeping(cfg *config.Config, limiter *security.RateLimiter) error {
	rt.Scheduler = cron.NewScheduler(rt.logger)
	err := rt.Scheduler.RegisterJob(&cron.VolatilePruneJob{
		Windows:      rt.Memory,
		Sweeper:      limiter,
		Observer:     rt.Metrics,
		MaxIdle:      cfg.Memory.MaxIdle,
		ScheduleExpr: cfg.Memory.PruneSchedule,
		Logger:       rt.logger,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	rt.App.AppendModule("cron", &schedulerModule{scheduler: rt.Scheduler})
	return nil
}

// wireReload watches the bot config document and republishes presence
// whenever the settings change.
func (rt *Runtime) wireReload() error {
	rt.Settings.Subscribe(func(s botconfig.Settings) {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		_ = rt.Dispatcher.SetPresence(ctx, s.Presence)
	})

	if rt.Settings.Path() == "" {
		return nil
	}
	watcher, err := reload.NewWatcher(reload.WatcherConfig{
		Path:   rt.Settings.Path(),
		Logger: rt.logger,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	rt.App.AppendModule("reload", &reloadModule{
		watcher: watcher,
		handler: reload.NewHandler(rt.Settings, rt.logger),
	})
	return nil
}

// Start starts every module and publishes the initial presence.
func (rt *Runtime) Start() error {
	if err := rt.App.Start(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	_ = rt.Dispatcher.SetPresence(ctx, rt.Settings.Current().Presence)
	return nil
}

// Stop stops every started module in reverse order.
func (rt *Runtime) Stop() {
	rt.App.Stop()
}

// Done is closed when a channel that can end on its own, such as the
// console, has finished. It is nil when no such channel is loaded.
func (rt *Runtime) Done() <-chan struct{} {
	for _, mod := range rt.App.Modules() {
		if d, ok := mod.(doneNotifier); ok {
			return d.Done()
		}
	}
	return nil
}

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(context.Background())
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *schedulerModule) Start() error { return m.scheduler.Start() }

func (m *schedulerModule) Stop(ctx context.Context) error { return m.scheduler.Stop(ctx) }

// searchModule releases the search cache once the router has stopped.
type searchModule struct {
	cache interface{ Close() }
}

func (m *searchModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "search"}
}

func (m *searchModule) Stop(_ context.Context) error {
	m.cache.Close()
	return nil
}

// reloadModule applies external edits of the bot config document.
type reloadModule struct {
	watcher *reload.Watcher
	handler *reload.Handler
	cancel  context.CancelFunc
}

func (m *reloadModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "reload"}
}

func (m *reloadModule) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.watcher.Start(ctx)
	go m.handler.Run(ctx, m.watcher.Events())
	return nil
}

func (m *reloadModule) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.watcher.Stop()
	return nil
}
