// Package config loads the application configuration from a JSON file
// with TONEBRIDGE_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/House-lovers7/tone-bridge/errors"
)

// envPrefix is prepended to every environment override variable.
const envPrefix = "TONEBRIDGE"

// Duration wraps time.Duration with JSON string encoding ("30s", "5m").
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// NATSConfig holds the NATS connection settings.
type NATSConfig struct {
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Name     string `json:"name,omitempty"`
}

// TransformConfig holds the transformation service settings.
type TransformConfig struct {
	ServiceURL string   `json:"service_url"`
	Timeout    Duration `json:"timeout"`
}

// CacheConfig holds the config/rule cache settings.
type CacheConfig struct {
	TTL             Duration `json:"ttl"`
	CleanupInterval Duration `json:"cleanup_interval"`
}

// LogConfig holds transformation-log settings.
type LogConfig struct {
	CorrelationWindow Duration `json:"correlation_window"`
}

// SendConfig holds the outbound throttling settings.
type SendConfig struct {
	MinInterval Duration `json:"min_interval"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string `json:"addr"`
	MetricsAddr string `json:"metrics_addr"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config is the complete application configuration.
type Config struct {
	NATS      NATSConfig      `json:"nats"`
	Transform TransformConfig `json:"transform"`
	Cache     CacheConfig     `json:"cache"`
	Logs      LogConfig       `json:"logs"`
	Send      SendConfig      `json:"send"`
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:  "nats://localhost:4222",
			Name: "tonebridge-autotransform",
		},
		Transform: TransformConfig{
			ServiceURL: "http://localhost:8001",
			Timeout:    Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			TTL:             Duration(300 * time.Second),
			CleanupInterval: Duration(time.Minute),
		},
		Logs: LogConfig{
			CorrelationWindow: Duration(60 * time.Second),
		},
		Send: SendConfig{
			MinInterval: Duration(time.Second),
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the config file (optional), applies environment overrides,
// and validates the result. An empty path loads defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse config file")
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envString(name string, target *string) {
	if val := os.Getenv(envPrefix + "_" + name); val != "" {
		*target = val
	}
}

func envDuration(name string, target *Duration) {
	val := os.Getenv(envPrefix + "_" + name)
	if val == "" {
		return
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		*target = Duration(parsed)
		return
	}
	// Bare numbers are treated as seconds.
	if secs, err := strconv.Atoi(val); err == nil {
		*target = Duration(time.Duration(secs) * time.Second)
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("NATS_URL", &cfg.NATS.URL)
	envString("NATS_USERNAME", &cfg.NATS.Username)
	envString("NATS_PASSWORD", &cfg.NATS.Password)
	envString("NATS_TOKEN", &cfg.NATS.Token)

	envString("TRANSFORM_URL", &cfg.Transform.ServiceURL)
	envDuration("TRANSFORM_TIMEOUT", &cfg.Transform.Timeout)

	envDuration("CACHE_TTL", &cfg.Cache.TTL)
	envDuration("LOG_CORRELATION_WINDOW", &cfg.Logs.CorrelationWindow)
	envDuration("SEND_MIN_INTERVAL", &cfg.Send.MinInterval)

	envString("SERVER_ADDR", &cfg.Server.Addr)
	envString("METRICS_ADDR", &cfg.Server.MetricsAddr)

	envString("LOG_LEVEL", &cfg.Logging.Level)
	envString("LOG_FORMAT", &cfg.Logging.Format)
}

// Validate checks the configuration for values the process cannot run with.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.Invalid("config", "Validate", "nats.url is required")
	}
	if c.Transform.ServiceURL == "" {
		return errors.Invalid("config", "Validate", "transform.service_url is required")
	}
	if c.Transform.Timeout.Std() <= 0 {
		return errors.Invalid("config", "Validate", "transform.timeout must be positive")
	}
	if c.Cache.TTL.Std() <= 0 {
		return errors.Invalid("config", "Validate", "cache.ttl must be positive")
	}
	if c.Cache.CleanupInterval.Std() <= 0 {
		return errors.Invalid("config", "Validate", "cache.cleanup_interval must be positive")
	}
	if c.Logs.CorrelationWindow.Std() <= 0 {
		return errors.Invalid("config", "Validate", "logs.correlation_window must be positive")
	}
	if c.Send.MinInterval.Std() <= 0 {
		return errors.Invalid("config", "Validate", "send.min_interval must be positive")
	}
	if c.Server.Addr == "" {
		return errors.Invalid("config", "Validate", "server.addr is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Invalid("config", "Validate",
			fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.Invalid("config", "Validate",
			fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}

	return nil
}
