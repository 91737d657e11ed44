// Package gameapi provides a Go client for the game project's remote
// function endpoints (auth, settings, rules, news, users, cases, inventory,
// logs, ip-guard, payments). Each endpoint is an independent JSON function
// URL; the client treats the whole set as one opaque backend.
package gameapi

import "time"

// Default client settings. Read retries use a fixed delay: the endpoints are
// serverless functions where a cold start is the common transient failure,
// and two quick retries cover it.
const (
	DefaultTimeout    = 8 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 1 * time.Second
)

// Endpoints holds the function URL for each remote endpoint.
type Endpoints struct {
	Auth       string `yaml:"auth"`
	Settings   string `yaml:"settings"`
	Rules      string `yaml:"rules"`
	News       string `yaml:"news"`
	Users      string `yaml:"users"`
	Cases      string `yaml:"cases"`
	CasesAdmin string `yaml:"cases_admin"`
	Inventory  string `yaml:"inventory"`
	Logs       string `yaml:"logs"`
	IPGuard    string `yaml:"ip_guard"`
	Payment    string `yaml:"payment"`
}

// Config holds all configuration for the game API client.
type Config struct {
	// Endpoints are the remote function URLs.
	Endpoints Endpoints

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxRetries is the retry budget for idempotent (read) requests.
	// Writes are never retried automatically.
	MaxRetries int

	// RetryDelay is the fixed delay between retries.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with default client settings and empty
// endpoint URLs.
func DefaultConfig() Config {
	return Config{
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxRetries int, retryDelay time.Duration) Config {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}
