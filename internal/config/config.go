// Package config holds server configuration, loadable from flags and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

// ServerConfig holds configuration for the site server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
	DBPath    string `yaml:"db_path"`    // SQLite path (":memory:" for testing)

	// Upstream game endpoints.
	Endpoints gameapi.Endpoints `yaml:"endpoints"`

	// Session controls server-side session behavior.
	Session SessionConfig `yaml:"session"`

	// Poll controls the background refresh intervals.
	Poll PollConfig `yaml:"poll"`

	// Console is the break-glass admin account. It replaces the hardcoded
	// console password of the old admin panel: the password is stored only
	// as a bcrypt hash, and the account works even when the upstream auth
	// endpoint is down.
	Console ConsoleConfig `yaml:"console"`

	// RedisAddr, when set, switches session storage from SQLite to Redis.
	RedisAddr string `yaml:"redis_addr"`
}

// SessionConfig controls session TTL and background refresh.
type SessionConfig struct {
	// TTL is the maximum session age. Historical pages disagreed (15m vs
	// 24h); the longer value is the canonical default.
	TTL time.Duration `yaml:"ttl"`

	// RefreshInterval is how often cached user records are re-fetched.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// CookieSecure marks the session cookie Secure (HTTPS deployments).
	CookieSecure bool `yaml:"cookie_secure"`
}

// PollConfig holds the per-source polling intervals.
type PollConfig struct {
	Online   time.Duration `yaml:"online"`
	Settings time.Duration `yaml:"settings"`
	Rules    time.Duration `yaml:"rules"`
	News     time.Duration `yaml:"news"`
}

// ConsoleConfig is the optional local admin account.
type ConsoleConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// Enabled reports whether the console account is configured.
func (c ConsoleConfig) Enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Session: SessionConfig{
			TTL:             24 * time.Hour,
			RefreshInterval: 10 * time.Second,
		},
		Poll: PollConfig{
			Online:   5 * time.Second,
			Settings: 10 * time.Second,
			Rules:    30 * time.Second,
			News:     30 * time.Second,
		},
	}
}

// Load reads a YAML config file over the given defaults.
func Load(path string, defaults ServerConfig) (ServerConfig, error) {
	cfg := defaults

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
