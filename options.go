// Client configuration uses the functional options pattern.
// All options have sensible defaults, so a client can be created with just:
//
//	c := cleverbot.New()
//
// Or customized:
//
//	c := cleverbot.New(
//	    cleverbot.WithLanguage("fr"),
//	    cleverbot.WithRetry(5, 3*time.Second),
//	)
package cleverbot

import (
	"log/slog"
	"time"
)

// Config holds all configuration for a client.
// Construction-time values are set via options; the mutable subset can be
// changed later through Configure.
type Config struct {
	// BaseURL is the scheme and host of the remote service.
	// Overridable for testing against a local server.
	BaseURL string

	// Preset is the browser fingerprint preset name (e.g. "chrome-120").
	Preset string

	// Debug enables diagnostic logging of retries.
	Debug bool

	// DefaultLanguage is sent when a call does not override the language.
	// Must be a member of the supported-language set.
	DefaultLanguage string

	// MaxRetryAttempts is the total number of attempts per Interact call.
	// Must be > 0.
	MaxRetryAttempts int

	// RetryBaseCooldown is the fixed floor of the backoff delay.
	// Must be > 0.
	RetryBaseCooldown time.Duration

	// CookieExpiration is how long a fetched cookie jar stays usable
	// before the next exchange forces a refresh. Must be > 0.
	CookieExpiration time.Duration

	// ExchangeTimeout bounds the exchange POST.
	ExchangeTimeout time.Duration

	// CookieTimeout bounds the cookie bootstrap GET. Cookie refresh is
	// less latency-sensitive than the exchange, so it gets more room.
	CookieTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	// Only for testing.
	InsecureSkipVerify bool

	// Logger receives diagnostic output. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.cleverbot.com",
		Preset:            "chrome-120",
		DefaultLanguage:   "en",
		MaxRetryAttempts:  3,
		RetryBaseCooldown: 2 * time.Second,
		CookieExpiration:  24 * time.Hour,
		ExchangeTimeout:   20 * time.Second,
		CookieTimeout:     25 * time.Second,
	}
}

// Option is a function that modifies Config
type Option func(*Config)

// WithBaseURL overrides the remote service base URL
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithPreset sets the browser fingerprint preset
func WithPreset(preset string) Option {
	return func(c *Config) {
		c.Preset = preset
	}
}

// WithDebug enables diagnostic retry logging
func WithDebug() Option {
	return func(c *Config) {
		c.Debug = true
	}
}

// WithLanguage sets the default language for exchanges
func WithLanguage(code string) Option {
	return func(c *Config) {
		c.DefaultLanguage = code
	}
}

// WithRetry configures the retry policy
func WithRetry(maxAttempts int, baseCooldown time.Duration) Option {
	return func(c *Config) {
		c.MaxRetryAttempts = maxAttempts
		c.RetryBaseCooldown = baseCooldown
	}
}

// WithCookieExpiration sets the cookie jar validity window
func WithCookieExpiration(window time.Duration) Option {
	return func(c *Config) {
		c.CookieExpiration = window
	}
}

// WithTimeouts sets the per-call timeouts for the exchange POST and the
// cookie bootstrap GET
func WithTimeouts(exchange, cookie time.Duration) Option {
	return func(c *Config) {
		c.ExchangeTimeout = exchange
		c.CookieTimeout = cookie
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only for testing against local servers.
func WithInsecureSkipVerify() Option {
	return func(c *Config) {
		c.InsecureSkipVerify = true
	}
}

// WithLogger sets the logger for diagnostic output
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
