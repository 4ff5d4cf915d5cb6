package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ProviderIDs returns the provider modules in failover order: the
// explicit assistant.providers list when set, else every configured
// provider.* module in sorted order.
func ProviderIDs(cfg *Config) []string {
	if len(cfg.Assistant.Providers) > 0 {
		return slices.Clone(cfg.Assistant.Providers)
	}
	var ids []string
	for _, id := range Resolve(cfg) {
		if strings.HasPrefix(id, "provider.") {
			ids = append(ids, id)
		}
	}
	return ids
}

// ResolvePath finds the configuration file. An explicit path wins;
// otherwise the search order is $XDG_CONFIG_HOME/ytcbot/ytcbot.yaml,
// ~/.config/ytcbot/ytcbot.yaml, then ./ytcbot.yaml.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %w", ErrConfig, err)
		}
		return explicit, nil
	}

	var candidates []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "ytcbot", FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "ytcbot", FileName))
	}
	candidates = append(candidates, FileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no configuration file found (searched: %v)", ErrConfig, candidates)
}

// DefaultDataDir returns $XDG_DATA_HOME/ytcbot, or ~/.local/share/ytcbot.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "ytcbot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ytcbot")
}
