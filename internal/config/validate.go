package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/cron"
)

var (
	validLevels    = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json"}
	validFallbacks = []string{"summary", "turns"}
)

// Validate checks the structural validity of a Config: the version, the
// enumerations, and that every referenced module ID is registered and
// configured. All problems are reported together, wrapped in ErrConfig.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if !slices.Contains(validLevels, strings.ToLower(cfg.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of %v", cfg.Log.Level, validLevels))
	}
	if !slices.Contains(validFormats, cfg.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q must be one of %v", cfg.Log.Format, validFormats))
	}
	if !slices.Contains(validFallbacks, cfg.Memory.HistoryFallback) {
		errs = append(errs, fmt.Errorf("memory.history_fallback %q must be one of %v", cfg.Memory.HistoryFallback, validFallbacks))
	}
	if cfg.Assistant.ModelTimeout < 0 {
		errs = append(errs, errors.New("assistant.model_timeout must not be negative"))
	}
	if cfg.Assistant.RateLimit.PerMinute < 0 {
		errs = append(errs, errors.New("assistant.rate_limit.per_minute must not be negative"))
	}

	if expr := cfg.Memory.PruneSchedule; expr != "" {
		if err := cron.ValidateSchedule(expr); err != nil {
			errs = append(errs, fmt.Errorf("memory.prune_schedule: %w", err))
		}
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("unknown module %q", id))
		}
	}

	providers := ProviderIDs(cfg)
	if len(providers) == 0 {
		errs = append(errs, errors.New("at least one provider.* module must be configured"))
	}
	for _, id := range providers {
		if !strings.HasPrefix(id, "provider.") {
			errs = append(errs, fmt.Errorf("assistant.providers: %q is not a provider module", id))
			continue
		}
		if _, ok := cfg.Modules[id]; !ok {
			errs = append(errs, fmt.Errorf("assistant.providers: %q has no modules entry", id))
		}
	}

	if b := cfg.Memory.Backend; b != MemoryBackendFile {
		if !strings.HasPrefix(b, "memory.") {
			errs = append(errs, fmt.Errorf("memory.backend %q must be %q or a memory.* module", b, MemoryBackendFile))
		} else if _, ok := cfg.Modules[b]; !ok {
			errs = append(errs, fmt.Errorf("memory.backend %q has no modules entry", b))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
}
