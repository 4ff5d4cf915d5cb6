// Package app provides the shared entry point of the ytcbot binary: it
// turns a configuration file into a running bot.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ytclab/ytcbot/internal/config"
	"github.com/ytclab/ytcbot/internal/observability"
	"github.com/ytclab/ytcbot/internal/security"
)

const presenceTimeout = 10 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath searches the standard locations.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the data_dir setting.
	DataDir string

	// LogLevel overrides log.level when non-empty.
	LogLevel string

	// LogOutput receives log records. Defaults to stderr.
	LogOutput io.Writer
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received. SIGHUP reloads the bot config document; edits on
// disk are picked up without a signal.
func Run(params RunParams) error {
	return RunContext(context.Background(), params)
}

// RunContext is Run that also shuts down when ctx is done.
func RunContext(ctx context.Context, params RunParams) error {
	cfgPath, err := config.ResolvePath(params.ConfigPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	redactor := security.NewRedactor()
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := NewLogger(out, cfg.Log, params.LogLevel, redactor)
	if err != nil {
		return err
	}
	logger.Info("ytcbot starting",
		"version", params.Version,
		"commit", params.Commit,
		"config", cfgPath,
	)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, params.Version, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	rt, err := Build(cfg, BuildOptions{
		Logger:   logger,
		Redactor: redactor,
		DataDir:  params.DataDir,
	})
	if err != nil {
		return err
	}
	if err := rt.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	done := rt.Done()
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading bot config")
				if err := rt.Settings.Reload(); err != nil {
					logger.Error("reload failed", "error", err)
				}
				continue
			}
			logger.Info("shutdown signal received", "signal", sig.String())
		case <-done:
			logger.Info("input closed")
		case <-ctx.Done():
			logger.Info("shutdown requested")
		}
		rt.Stop()
		logger.Info("shutdown complete")
		return nil
	}
}

// NewLogger builds the root logger: a text or JSON handler wrapped in a
// redacting handler. levelOverride, when set, wins over cfg.Level.
func NewLogger(w io.Writer, cfg config.LogConfig, levelOverride string, redactor *security.Redactor) (*slog.Logger, error) {
	name := cfg.Level
	if levelOverride != "" {
		name = levelOverride
	}
	var level slog.Level
	if name != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
			return nil, fmt.Errorf("app: log level %q: %w", name, err)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	switch cfg.Format {
	case "json":
		inner = slog.NewJSONHandler(w, opts)
	default:
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), nil
}
