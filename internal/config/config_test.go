package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate/internal/limits"
	"github.com/quotagate/quotagate/internal/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Storage.Backend != store.BackendMemory {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.DefaultClass != limits.DefaultClass {
		t.Errorf("DefaultClass = %q, want %q", cfg.DefaultClass, limits.DefaultClass)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_MergesWithDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"addr": ":9090"},
		"storage": {"backend": "redis", "redis": {"host": "redis.internal", "dial_timeout": "2s"}},
		"rules": [{"uri": "/servers", "value": 10, "unit": "MINUTE"}]
	}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Storage.Backend != store.BackendRedis {
		t.Errorf("Storage.Backend = %q, want redis", cfg.Storage.Backend)
	}
	if cfg.Storage.Redis.Host != "redis.internal" {
		t.Errorf("Redis.Host = %q, want redis.internal", cfg.Storage.Redis.Host)
	}
	if cfg.Storage.Redis.DialTimeout != 2*time.Second {
		t.Errorf("Redis.DialTimeout = %v, want 2s", cfg.Storage.Redis.DialTimeout)
	}
	// Unspecified fields keep defaults.
	if cfg.Storage.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want default 6379", cfg.Storage.Redis.Port)
	}
	if cfg.DefaultClass != limits.DefaultClass {
		t.Errorf("DefaultClass = %q, want default", cfg.DefaultClass)
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"server": {"addr": ":9090"}}`)

	t.Setenv("QUOTAGATE_ADDR", ":7070")
	t.Setenv("QUOTAGATE_DEFAULT_CLASS", "bronze")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want env override :7070", cfg.Server.Addr)
	}
	if cfg.DefaultClass != "bronze" {
		t.Errorf("DefaultClass = %q, want bronze", cfg.DefaultClass)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("LoadFile() on missing file = nil, want error")
	}
}

func TestBuildRules_GeneratesMissingID(t *testing.T) {
	cfg := Default()
	cfg.Rules = []RuleConfig{{URI: "/servers", Value: 10, Unit: "MINUTE"}}

	rules, err := cfg.BuildRules()
	if err != nil {
		t.Fatalf("BuildRules() error = %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("BuildRules() returned %d rules, want 1", len(rules))
	}
	if rules[0].ID == uuid.Nil {
		t.Error("rule with no id should get a generated identity")
	}
}

func TestBuildRules_KeepsExplicitID(t *testing.T) {
	id := uuid.New()
	cfg := Default()
	cfg.Rules = []RuleConfig{{ID: id.String(), URI: "/servers", Value: 10, Unit: "MINUTE"}}

	rules, err := cfg.BuildRules()
	if err != nil {
		t.Fatalf("BuildRules() error = %v", err)
	}
	if rules[0].ID != id {
		t.Errorf("rule ID = %s, want %s", rules[0].ID, id)
	}
}

func TestBuildRules_RejectsMalformedID(t *testing.T) {
	cfg := Default()
	cfg.Rules = []RuleConfig{{ID: "not-a-uuid", URI: "/servers", Value: 10}}

	if _, err := cfg.BuildRules(); err == nil {
		t.Error("BuildRules() with malformed id = nil, want error")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Storage.Backend = "etcd" }},
		{"bad policy", func(c *Config) { c.MatchPolicy = "always" }},
		{"empty default class", func(c *Config) { c.DefaultClass = "" }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"bad rule", func(c *Config) { c.Rules = []RuleConfig{{URI: "servers", Value: 1}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestWriteExample_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.json")
	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample() error = %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on example = %v", err)
	}
	if len(cfg.Rules) != 1 {
		t.Errorf("example rules = %d, want 1", len(cfg.Rules))
	}
}
