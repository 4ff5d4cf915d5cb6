package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Entry names one provider in a failover set.
type Entry struct {
	Name     string
	Provider Provider
	Cooldown Cooldown
}

type failoverEntry struct {
	Entry
	backoff *backoff
}

// Failover is a Provider that tries its entries in order. A transient
// failure (rate limit, provider down) puts the entry in cooldown and moves
// on to the next one; any other failure is returned as is.
type Failover struct {
	entries []failoverEntry
	logger  *slog.Logger
}

// NewFailover builds a failover set. The first entry is the primary.
func NewFailover(entries []Entry, logger *slog.Logger) (*Failover, error) {
	if len(entries) == 0 {
		return nil, ErrNoProvider
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "provider")

	f := &Failover{entries: make([]failoverEntry, len(entries)), logger: logger}
	for i, e := range entries {
		if e.Provider == nil {
			return nil, fmt.Errorf("%w: entry %q has nil provider", ErrNoProvider, e.Name)
		}
		b := newBackoff(e.Cooldown)
		name := e.Name
		b.onChange = func(coolingDown bool) {
			if !coolingDown {
				logger.Info("provider recovered", "provider", name)
				return
			}
			streak, wait := b.state()
			logger.Warn("provider cooling down", "provider", name, "wait", wait, "failures", streak)
		}
		f.entries[i] = failoverEntry{Entry: e, backoff: b}
	}
	return f, nil
}

// Complete sends req to the first available provider, failing over on
// transient errors.
func (f *Failover) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var lastErr error
	for i := range f.entries {
		e := &f.entries[i]
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}
		if !e.backoff.available() {
			continue
		}

		resp, err := e.Provider.Complete(ctx, req)
		if err == nil {
			e.backoff.succeeded()
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return CompletionResponse{}, err
		}
		e.backoff.failed()
		f.logger.Warn("provider failed, failing over", "provider", e.Name, "reason", Reason(err), "error", err)
	}

	if lastErr != nil {
		return CompletionResponse{}, fmt.Errorf("%w: last error: %w", ErrAllProviders, lastErr)
	}
	return CompletionResponse{}, fmt.Errorf("%w: all providers cooling down", ErrAllProviders)
}

// ModelName returns the primary provider's model.
func (f *Failover) ModelName() string {
	return f.entries[0].Provider.ModelName()
}

// Names lists the entries in failover order.
func (f *Failover) Names() []string {
	names := make([]string, len(f.entries))
	for i, e := range f.entries {
		names[i] = e.Name
	}
	return names
}

var _ Provider = (*Failover)(nil)
