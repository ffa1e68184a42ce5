package supabase

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/automatar/internal/log"
)

// DefaultTable is the animation table name
const DefaultTable = "animations"

// Config holds Supabase client configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	URL     string
	Key     string
	Table   string
	Timeout time.Duration

	// HTTPClient overrides the default authenticated client; the caller is
	// then responsible for auth headers.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// DefaultConfig returns defaults for everything except URL and Key.
func DefaultConfig() *Config {
	return &Config{
		Table:   DefaultTable,
		Timeout: 30 * time.Second,
		Logger:  log.L(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrNoURL
	}
	if c.Key == "" {
		return ErrNoKey
	}
	return nil
}

// WithURL sets the project URL, e.g. https://xyz.supabase.co
func WithURL(url string) Option {
	return func(c *Config) {
		c.URL = url
	}
}

// WithKey sets the anon or service key.
func WithKey(key string) Option {
	return func(c *Config) {
		c.Key = key
	}
}

// WithTable overrides the animation table name.
func WithTable(table string) Option {
	return func(c *Config) {
		if table != "" {
			c.Table = table
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
