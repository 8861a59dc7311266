// Package config holds the dashboard service settings, read from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the dashboard service configuration.
type Config struct {
	// Addr is <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces.
	Addr string `env:"ADDR" envDefault:":3010"`

	// DataSource is loaded into the default session at startup (file path or URL). Empty skips it.
	DataSource string `env:"DATA_SOURCE"`
	// FileRoot restricts file sources to this directory. Empty allows any path.
	FileRoot string `env:"FILE_ROOT"`

	LoadTimeout  time.Duration `env:"LOAD_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" envDefault:"67108864"`
	LoadRetries  int           `env:"LOAD_RETRIES" envDefault:"3"`

	// RefreshCron reloads every URL-backed session on this schedule (seconds field included).
	// Empty disables scheduled refresh.
	RefreshCron    string `env:"REFRESH_CRON"`
	RefreshWorkers int    `env:"REFRESH_WORKERS" envDefault:"4"`

	// Sessions other than the default one are dropped after SessionIdleTimeout without
	// requests, checked on SessionSweepCron. A zero timeout or empty schedule keeps them.
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SessionSweepCron   string        `env:"SESSION_SWEEP_CRON" envDefault:"0 */5 * * * *"`

	// AllowedOrigins lists the cross-origin callers (scheme://host[:port]) that may use the
	// API and websocket with credentials. Same-origin requests are always allowed.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	RowsPerPage int `env:"ROWS_PER_PAGE" envDefault:"20"`

	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the service configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.RefreshWorkers <= 0 {
		return Config{}, fmt.Errorf("REFRESH_WORKERS must be positive, got %d", cfg.RefreshWorkers)
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			return Config{}, fmt.Errorf("ALLOWED_ORIGINS does not accept a wildcard")
		}
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	return cfg, nil
}
