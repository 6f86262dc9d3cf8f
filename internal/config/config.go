// Package config loads and validates the quotagate configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/quotagate/quotagate/internal/limits"
	"github.com/quotagate/quotagate/internal/store"
)

// Config is the top-level configuration for a quotagate process.
type Config struct {
	Server       ServerConfig   `json:"server"`
	Storage      StorageConfig  `json:"storage"`
	DefaultClass string         `json:"default_class"`
	MatchPolicy  string         `json:"match_policy"`
	Identity     IdentityConfig `json:"identity"`
	Rules        []RuleConfig   `json:"rules"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// StorageConfig selects and configures the bucket-store backend.
type StorageConfig struct {
	Backend string      `json:"backend"`
	Redis   RedisConfig `json:"redis"`
}

// RedisConfig mirrors store.RedisConfig with JSON-friendly fields.
type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	Cluster      bool          `json:"cluster"`
	ClusterNodes []string      `json:"cluster_nodes"`
	PoolSize     int           `json:"pool_size"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"-"`
}

// IdentityConfig is the static directory fixture the bundled server uses.
// Deployments fronting a real identity service leave this empty and plug
// their own Directory in.
type IdentityConfig struct {
	Users  []UserConfig  `json:"users"`
	Tokens []TokenConfig `json:"tokens"`
}

type UserConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TokenConfig struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// RuleConfig is the JSON form of one limit rule.
type RuleConfig struct {
	ID        string   `json:"id"`
	URI       string   `json:"uri"`
	Verbs     []string `json:"verbs"`
	Value     int64    `json:"value"`
	Unit      string   `json:"unit"`
	RateClass string   `json:"rate_class"`
	Queries   []string `json:"queries"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			Backend: store.BackendMemory,
			Redis: RedisConfig{
				Host:        "localhost",
				Port:        6379,
				PoolSize:    20,
				MaxRetries:  3,
				DialTimeout: 5 * time.Second,
			},
		},
		DefaultClass: limits.DefaultClass,
		MatchPolicy:  string(limits.PolicyIdentity),
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Storage.Backend {
	case store.BackendMemory, store.BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q, must be one of: memory, redis", c.Storage.Backend)
	}
	switch limits.MatchPolicy(c.MatchPolicy) {
	case limits.PolicyIdentity, limits.PolicyAuthEndpoint:
	default:
		return fmt.Errorf("unknown match policy %q, must be one of: identity, auth-endpoint", c.MatchPolicy)
	}
	if c.DefaultClass == "" {
		return fmt.Errorf("default_class must not be empty")
	}
	if _, err := c.BuildRules(); err != nil {
		return err
	}
	return nil
}

// BuildRules converts the configured rules into validated limit rules.
// A rule with no id gets a generated identity, keeping the bucket-key
// namespace well-formed; a malformed non-empty id is rejected.
func (c Config) BuildRules() ([]*limits.Rule, error) {
	rules := make([]*limits.Rule, 0, len(c.Rules))
	for i, rc := range c.Rules {
		id := uuid.New()
		if rc.ID != "" {
			parsed, err := uuid.Parse(rc.ID)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: parsing id %q: %w", i, rc.ID, err)
			}
			id = parsed
		}

		rule := &limits.Rule{
			ID:        id,
			URI:       rc.URI,
			Verbs:     rc.Verbs,
			Value:     rc.Value,
			Unit:      rc.Unit,
			RateClass: rc.RateClass,
			Queries:   rc.Queries,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadFile reads a JSON config file, merges it with defaults, and applies
// environment overrides. Fields not specified retain their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	// Use a raw intermediate struct to handle duration parsing.
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if raw.Server.Addr != "" {
		cfg.Server.Addr = raw.Server.Addr
	}
	if raw.Storage.Backend != "" {
		cfg.Storage.Backend = raw.Storage.Backend
	}
	if raw.Storage.Redis.Host != "" {
		cfg.Storage.Redis.Host = raw.Storage.Redis.Host
	}
	if raw.Storage.Redis.Port > 0 {
		cfg.Storage.Redis.Port = raw.Storage.Redis.Port
	}
	if raw.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = raw.Storage.Redis.Password
	}
	if raw.Storage.Redis.DB > 0 {
		cfg.Storage.Redis.DB = raw.Storage.Redis.DB
	}
	cfg.Storage.Redis.Cluster = raw.Storage.Redis.Cluster
	if len(raw.Storage.Redis.ClusterNodes) > 0 {
		cfg.Storage.Redis.ClusterNodes = raw.Storage.Redis.ClusterNodes
	}
	if raw.Storage.Redis.PoolSize > 0 {
		cfg.Storage.Redis.PoolSize = raw.Storage.Redis.PoolSize
	}
	if raw.Storage.Redis.MaxRetries > 0 {
		cfg.Storage.Redis.MaxRetries = raw.Storage.Redis.MaxRetries
	}
	if raw.Storage.Redis.DialTimeout != "" {
		d, err := time.ParseDuration(raw.Storage.Redis.DialTimeout)
		if err != nil {
			return cfg, fmt.Errorf("parsing storage.redis.dial_timeout: %w", err)
		}
		cfg.Storage.Redis.DialTimeout = d
	}
	if raw.DefaultClass != "" {
		cfg.DefaultClass = raw.DefaultClass
	}
	if raw.MatchPolicy != "" {
		cfg.MatchPolicy = raw.MatchPolicy
	}
	cfg.Identity = raw.Identity
	cfg.Rules = raw.Rules

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// rawConfig is the JSON-friendly representation with string durations.
type rawConfig struct {
	Server struct {
		Addr string `json:"addr"`
	} `json:"server"`
	Storage struct {
		Backend string `json:"backend"`
		Redis   struct {
			Host         string   `json:"host"`
			Port         int      `json:"port"`
			Password     string   `json:"password"`
			DB           int      `json:"db"`
			Cluster      bool     `json:"cluster"`
			ClusterNodes []string `json:"cluster_nodes"`
			PoolSize     int      `json:"pool_size"`
			MaxRetries   int      `json:"max_retries"`
			DialTimeout  string   `json:"dial_timeout"`
		} `json:"redis"`
	} `json:"storage"`
	DefaultClass string         `json:"default_class"`
	MatchPolicy  string         `json:"match_policy"`
	Identity     IdentityConfig `json:"identity"`
	Rules        []RuleConfig   `json:"rules"`
}

// envOverrides are applied on top of file values; pointer fields distinguish
// "unset" from zero values.
type envOverrides struct {
	Addr           *string `env:"QUOTAGATE_ADDR"`
	StorageBackend *string `env:"QUOTAGATE_STORAGE"`
	RedisHost      *string `env:"QUOTAGATE_REDIS_HOST"`
	RedisPort      *int    `env:"QUOTAGATE_REDIS_PORT"`
	RedisPassword  *string `env:"QUOTAGATE_REDIS_PASSWORD"`
	RedisDB        *int    `env:"QUOTAGATE_REDIS_DB"`
	DefaultClass   *string `env:"QUOTAGATE_DEFAULT_CLASS"`
	MatchPolicy    *string `env:"QUOTAGATE_MATCH_POLICY"`
}

func applyEnv(cfg *Config) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parsing environment overrides: %w", err)
	}

	if overrides.Addr != nil {
		cfg.Server.Addr = *overrides.Addr
	}
	if overrides.StorageBackend != nil {
		cfg.Storage.Backend = *overrides.StorageBackend
	}
	if overrides.RedisHost != nil {
		cfg.Storage.Redis.Host = *overrides.RedisHost
	}
	if overrides.RedisPort != nil {
		cfg.Storage.Redis.Port = *overrides.RedisPort
	}
	if overrides.RedisPassword != nil {
		cfg.Storage.Redis.Password = *overrides.RedisPassword
	}
	if overrides.RedisDB != nil {
		cfg.Storage.Redis.DB = *overrides.RedisDB
	}
	if overrides.DefaultClass != nil {
		cfg.DefaultClass = *overrides.DefaultClass
	}
	if overrides.MatchPolicy != nil {
		cfg.MatchPolicy = *overrides.MatchPolicy
	}
	return nil
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	example := `{
  "server": {
    "addr": ":8080"
  },
  "storage": {
    "backend": "memory"
  },
  "default_class": "ip-class",
  "match_policy": "identity",
  "identity": {
    "users": [{"id": "42", "name": "alice"}],
    "tokens": [{"id": "tok-alice", "user_id": "42"}]
  },
  "rules": [
    {
      "uri": "/servers",
      "verbs": ["GET", "POST"],
      "value": 10,
      "unit": "MINUTE",
      "rate_class": "ip-class"
    }
  ]
}
`
	return os.WriteFile(path, []byte(example), 0o644)
}
