// Package gateway serves the HTTP surface of the bot: health and metrics
// probes, the authenticated admin API and the websocket chat endpoint.
// It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ytclab/ytcbot/internal/admin"
	"github.com/ytclab/ytcbot/internal/config"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/security"
	"gopkg.in/yaml.v3"
)

// Service names the gateway looks up at Start.
const (
	ServiceAdmin     = "admin.service"
	ServiceConfig    = "config.current"
	ServiceRedactor  = security.ServiceRedactor
	ServiceMetrics   = "observability.metrics"
	ServiceRouter    = "router"
	ServiceChannels  = "channel.dispatcher"
	ServiceProviders = "provider.failover"
	ServiceJobs      = "cron.scheduler"
	ServiceWebsocket = "channel.websocket.handler"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// ScopeCounter reports how many scopes have a turn in flight.
type ScopeCounter interface {
	ActiveScopes() int
}

// ChannelLister lists registered channels.
type ChannelLister interface {
	Channels() []string
}

// ProviderLister lists the model providers in failover order.
type ProviderLister interface {
	Names() []string
}

// JobRunner runs housekeeping jobs on demand.
type JobRunner interface {
	Jobs() []string
	RunNow(ctx context.Context, name string) (bool, error)
}

// Deps are the collaborators the gateway serves. Any may be nil; the
// matching endpoints then report the feature as unavailable.
type Deps struct {
	Admin     *admin.Service
	Config    *config.Config
	Redactor  *security.Redactor
	Metrics   http.Handler
	Router    ScopeCounter
	Channels  ChannelLister
	Providers ProviderLister
	Jobs      JobRunner
	Websocket http.Handler
}

// Gateway is the HTTP gateway module.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	deps      Deps
	limiter   *security.RateLimiter
	server    *http.Server
	startedAt time.Time
}

// New creates a gateway outside the module system, e.g. for tests.
func New(cfg Config, deps Deps, logger *slog.Logger) *Gateway {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:    cfg,
		deps:      deps,
		logger:    logger,
		limiter:   security.NewRateLimiter(cfg.Auth.RateLimit),
		startedAt: time.Now(),
	}
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decoding config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.limiter = security.NewRateLimiter(g.config.Auth.RateLimit)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	return nil
}

// Start implements core.Starter. Collaborators are resolved from the
// service registry here, after every module has been provisioned.
func (g *Gateway) Start() error {
	if g.appCtx != nil {
		g.deps = resolveDeps(g.appCtx)
	}
	if g.deps.Redactor != nil {
		for _, s := range g.config.Auth.secrets() {
			g.deps.Redactor.AddLiteral(s)
		}
	}
	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway auth not configured, admin API disabled")
	}

	g.startedAt = time.Now()
	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.Handler(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

func resolveDeps(ctx *core.AppContext) Deps {
	var d Deps
	d.Admin, _ = core.ServiceAs[*admin.Service](ctx, ServiceAdmin)
	d.Config, _ = core.ServiceAs[*config.Config](ctx, ServiceConfig)
	d.Redactor, _ = core.ServiceAs[*security.Redactor](ctx, ServiceRedactor)
	d.Metrics, _ = core.ServiceAs[http.Handler](ctx, ServiceMetrics)
	d.Router, _ = core.ServiceAs[ScopeCounter](ctx, ServiceRouter)
	d.Channels, _ = core.ServiceAs[ChannelLister](ctx, ServiceChannels)
	d.Providers, _ = core.ServiceAs[ProviderLister](ctx, ServiceProviders)
	d.Jobs, _ = core.ServiceAs[JobRunner](ctx, ServiceJobs)
	d.Websocket, _ = core.ServiceAs[http.Handler](ctx, ServiceWebsocket)
	return d
}
