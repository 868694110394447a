package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Device    DeviceConfig    `yaml:"device" toml:"device"`
	CORS      CORSConfig      `yaml:"cors" toml:"cors"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" yaml:"port" toml:"port"`
	Host            string   `envconfig:"HOST" yaml:"host" toml:"host"`
	StaticDir       string   `envconfig:"STATIC_DIR" yaml:"static_dir" toml:"static_dir"`
	Compression     bool     `envconfig:"COMPRESSION_ENABLED" yaml:"compression" toml:"compression"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DeviceConfig holds settings for outbound calls to the device control port.
type DeviceConfig struct {
	Timeout         Duration `envconfig:"DEVICE_TIMEOUT" yaml:"timeout" toml:"timeout"`
	UserAgent       string   `envconfig:"DEVICE_USER_AGENT" yaml:"user_agent" toml:"user_agent"`
	BreakerEnabled  bool     `envconfig:"DEVICE_BREAKER_ENABLED" yaml:"breaker_enabled" toml:"breaker_enabled"`
	BreakerFailures int      `envconfig:"DEVICE_BREAKER_FAILURES" yaml:"breaker_failures" toml:"breaker_failures"`
	BreakerCooldown Duration `envconfig:"DEVICE_BREAKER_COOLDOWN" yaml:"breaker_cooldown" toml:"breaker_cooldown"`
	BreakerIdleTTL  Duration `envconfig:"DEVICE_BREAKER_IDLE_TTL" yaml:"breaker_idle_ttl" toml:"breaker_idle_ttl"`
}

// CORSConfig holds the origins allowed to call the relay from a browser.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" yaml:"allow_origins" toml:"allow_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration that decodes from Go duration strings ("4s")
// in environment variables, YAML and TOML alike.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Load loads configuration from environment variables on top of defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration with precedence defaults < file < environment.
// An empty path skips the file layer. The format is picked from the file
// extension (.yaml, .yml or .toml).
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// No default tags: unset variables leave file and default values alone.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("invalid config: server port is empty")
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("invalid config: device timeout must be positive, got %s", c.Device.Timeout)
	}
	if c.Device.BreakerEnabled && c.Device.BreakerFailures <= 0 {
		return fmt.Errorf("invalid config: breaker failures must be positive, got %d", c.Device.BreakerFailures)
	}
	if c.Device.BreakerEnabled && c.Device.BreakerIdleTTL < c.Device.BreakerCooldown {
		return fmt.Errorf("invalid config: breaker idle ttl %s is shorter than cooldown %s",
			c.Device.BreakerIdleTTL, c.Device.BreakerCooldown)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid config: rate limit rps and burst must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "3000",
			Host:            "0.0.0.0",
			Compression:     true,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Device: DeviceConfig{
			Timeout:         Duration(4 * time.Second),
			UserAgent:       "RemoteRelay/1.0",
			BreakerEnabled:  false,
			BreakerFailures: 5,
			BreakerCooldown: Duration(30 * time.Second),
			BreakerIdleTTL:  Duration(10 * time.Minute),
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
