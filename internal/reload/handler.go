package reload

import (
	"context"
	"fmt"
	"log/slog"
)

// Reloader re-reads its backing document. botconfig.Store implements it.
type Reloader interface {
	Reload() error
}

// Handler applies watcher events to a Reloader.
type Handler struct {
	target Reloader
	logger *slog.Logger
}

// NewHandler creates a handler for target.
func NewHandler(target Reloader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{target: target, logger: logger.With("component", "reload")}
}

// HandleEvent reloads on a modification. A removed file is logged and
// the current settings stay active until it reappears.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: cancelled: %w", err)
	}
	if ev.Type == EventRemoved {
		h.logger.Warn("watched file removed, keeping current settings", "path", ev.Path)
		return nil
	}
	if err := h.target.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// Run consumes events until ctx is done or the channel closes. Reload
// failures are logged and the previous settings remain in effect.
func (h *Handler) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.HandleEvent(ctx, ev); err != nil {
				h.logger.Error("reload failed, keeping current settings", "path", ev.Path, "error", err)
			}
		}
	}
}
