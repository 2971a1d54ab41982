// Package config loads runtime settings for the relay from the environment
// and applies defaults for anything missing or out of range.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// RetentionConfig controls how long relayed messages stay in the message store
// and how often they are swept. EvictionInterval enables a fixed sweep in
// addition to the per-message chance; zero disables it.
type RetentionConfig struct {
	Window           time.Duration `env:"RETENTION_WINDOW" envDefault:"5m"`
	EvictionChance   float64       `env:"EVICTION_CHANCE" envDefault:"0.01"`
	EvictionInterval time.Duration `env:"EVICTION_INTERVAL" envDefault:"0s"`
}

// LogConfig selects the log level and the optional rotating log file.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string          `env:"SERVER_PORT" envDefault:":8080"`
	AllowedOrigins  []string        `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	MaxMessageSize  int64           `env:"MAX_MESSAGE_SIZE" envDefault:"1024"`
	SendBuffer      int             `env:"SEND_BUFFER" envDefault:"256"`
	GinMode         string          `env:"GIN_MODE" envDefault:"release"`
	ShutdownTimeout time.Duration   `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RateLimit       RateLimitConfig
	Retention       RetentionConfig
	Log             LogConfig
}

// Default returns a Config populated with default values for all settings.
func Default() Config {
	return Config{
		Port:            ":8080",
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  1024,
		SendBuffer:      256,
		GinMode:         "release",
		ShutdownTimeout: 10 * time.Second,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		Retention: RetentionConfig{
			Window:         5 * time.Minute,
			EvictionChance: 0.01,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (Config, error) {
	return parse(env.Options{})
}

// FromMap reads the configuration from the given key/value pairs instead of
// the process environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return Sanitize(cfg), nil
}

// Sanitize replaces empty or non-positive values with their defaults.
func Sanitize(cfg Config) Config {
	def := Default()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.GinMode == "" {
		cfg.GinMode = def.GinMode
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}

	if cfg.Retention.Window <= 0 {
		cfg.Retention.Window = def.Retention.Window
	}
	if cfg.Retention.EvictionChance < 0 || cfg.Retention.EvictionChance > 1 {
		cfg.Retention.EvictionChance = def.Retention.EvictionChance
	}
	if cfg.Retention.EvictionInterval < 0 {
		cfg.Retention.EvictionInterval = 0
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	return cfg
}
