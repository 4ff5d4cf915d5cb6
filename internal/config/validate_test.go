package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/ytclab/ytcbot/internal/core"
	"gopkg.in/yaml.v3"
)

type stubModule struct{ id string }

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &stubModule{id: m.id} },
	}
}

func init() {
	for _, id := range []string{"provider.stub", "provider.backup", "memory.stub", "channel.stub"} {
		core.RegisterModule(&stubModule{id: id})
	}
}

func validConfig() *Config {
	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{
			"provider.stub": {},
			"channel.stub":  {},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantErr: []string{"version"},
		},
		{
			name:    "unsupported version",
			mutate:  func(c *Config) { c.Version = "99" },
			wantErr: []string{"unsupported"},
		},
		{
			name:    "bad prune schedule",
			mutate:  func(c *Config) { c.Memory.PruneSchedule = "every now and then" },
			wantErr: []string{"memory.prune_schedule"},
		},
		{
			name:   "descriptor prune schedule",
			mutate: func(c *Config) { c.Memory.PruneSchedule = "@every 10m" },
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: []string{"log.level"},
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: []string{"log.format"},
		},
		{
			name:    "bad history fallback",
			mutate:  func(c *Config) { c.Memory.HistoryFallback = "all" },
			wantErr: []string{"history_fallback"},
		},
		{
			name: "unknown modules",
			mutate: func(c *Config) {
				c.Modules["bad.one"] = yaml.Node{}
				c.Modules["bad.two"] = yaml.Node{}
			},
			wantErr: []string{"bad.one", "bad.two"},
		},
		{
			name:    "no provider",
			mutate:  func(c *Config) { delete(c.Modules, "provider.stub") },
			wantErr: []string{"at least one provider"},
		},
		{
			name:    "provider list names unconfigured module",
			mutate:  func(c *Config) { c.Assistant.Providers = []string{"provider.stub", "provider.backup"} },
			wantErr: []string{`"provider.backup" has no modules entry`},
		},
		{
			name:    "provider list names non provider",
			mutate:  func(c *Config) { c.Assistant.Providers = []string{"channel.stub"} },
			wantErr: []string{"not a provider module"},
		},
		{
			name: "memory backend module",
			mutate: func(c *Config) {
				c.Memory.Backend = "memory.stub"
				c.Modules["memory.stub"] = yaml.Node{}
			},
		},
		{
			name:    "memory backend not configured",
			mutate:  func(c *Config) { c.Memory.Backend = "memory.stub" },
			wantErr: []string{"memory.backend"},
		},
		{
			name:    "memory backend not a module",
			mutate:  func(c *Config) { c.Memory.Backend = "redis" },
			wantErr: []string{"memory.backend"},
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Assistant.RateLimit.PerMinute = -1 },
			wantErr: []string{"rate_limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("Validate() error = %v, want ErrConfig", err)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestProviderIDs(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Modules["provider.backup"] = yaml.Node{}
	got := ProviderIDs(cfg)
	if strings.Join(got, ",") != "provider.backup,provider.stub" {
		t.Errorf("ProviderIDs() = %v, want sorted provider modules", got)
	}

	cfg.Assistant.Providers = []string{"provider.stub", "provider.backup"}
	got = ProviderIDs(cfg)
	if strings.Join(got, ",") != "provider.stub,provider.backup" {
		t.Errorf("ProviderIDs() = %v, want explicit order", got)
	}
}
