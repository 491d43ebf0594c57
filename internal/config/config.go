package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "murmur.yml"

// EnvPrefix prefixes every environment override, e.g. MURMUR_RELAY_URL.
const EnvPrefix = "MURMUR"

// CurrentVersion is the only supported config file version.
const CurrentVersion = "1.0"

// Config represents the top-level murmur.yml configuration
type Config struct {
	Version string        `mapstructure:"version" yaml:"version"`
	DataDir string        `mapstructure:"data_dir" yaml:"data_dir"` // Author key and local store
	Relay   RelayConfig   `mapstructure:"relay" yaml:"relay"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Receive ReceiveConfig `mapstructure:"receive" yaml:"receive"`
}

// RelayConfig selects the Redis relay peers sync through
type RelayConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
	File   string `mapstructure:"file" yaml:"file"`     // Empty means stderr
}

// MetricsConfig controls the optional health and metrics endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // Empty disables the endpoint
}

// ReceiveConfig bounds the wait for content that has not propagated yet
type ReceiveConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		DataDir: ".murmur-dir",
		Relay:   RelayConfig{URL: "redis://localhost:6379/0"},
		Log:     LogConfig{Level: "warn", Format: "console"},
		Receive: ReceiveConfig{RetryAttempts: 3, RetryInterval: time.Second},
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported version: %s (expected: %s)", c.Version, CurrentVersion)
	}

	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}

	u, err := url.Parse(c.Relay.URL)
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") || u.Host == "" {
		return fmt.Errorf("relay.url must be a redis:// or rediss:// URL, got %q", c.Relay.URL)
	}

	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Log.Level)
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format: %s (must be 'console' or 'json')", c.Log.Format)
	}

	if c.Receive.RetryAttempts < 0 {
		return fmt.Errorf("receive.retry_attempts must be >= 0, got %d", c.Receive.RetryAttempts)
	}

	if c.Receive.RetryInterval <= 0 {
		return fmt.Errorf("receive.retry_interval must be positive, got %s", c.Receive.RetryInterval)
	}

	return nil
}

// Load builds the configuration from defaults, a .env file in the working
// directory, the YAML file at path and MURMUR_* environment variables, in
// increasing order of precedence.
//
// An empty path means DefaultPath, which may be absent. An explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("version", def.Version)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("relay.url", def.Relay.URL)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("receive.retry_attempts", def.Receive.RetryAttempts)
	v.SetDefault("receive.retry_interval", def.Receive.RetryInterval)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
