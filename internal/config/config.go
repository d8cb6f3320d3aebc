// Package config loads CodeTree settings from a YAML file, a .env file and
// CODETREE_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider kinds
const (
	ProviderMemory = "memory"
	ProviderSQL    = "sql"
	ProviderHTTP   = "http"
)

// Config is the full service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Provider  ProviderConfig  `yaml:"provider"`
	Hierarchy HierarchyConfig `yaml:"hierarchy"`
}

// ServerConfig holds listener settings
type ServerConfig struct {
	GrpcPort        int           `yaml:"grpc_port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ProviderConfig selects and configures the coding system provider
type ProviderConfig struct {
	Kind      string        `yaml:"kind"`
	Fixture   string        `yaml:"fixture"`
	DSN       string        `yaml:"dsn"`
	BaseURL   string        `yaml:"base_url"`
	RetryMax  int           `yaml:"retry_max"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"` // 0 disables caching
}

// HierarchyConfig tunes hierarchy construction
type HierarchyConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GrpcPort:        50061,
			MetricsPort:     9091,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Provider: ProviderConfig{
			Kind:      ProviderMemory,
			RetryMax:  3,
			Timeout:   30 * time.Second,
			CacheSize: 10000,
		},
		Hierarchy: HierarchyConfig{
			Concurrency: 8,
		},
	}
}

// Override adjusts a loaded Config before validation, e.g. from CLI flags
type Override func(*Config)

// WithFixture switches to the memory provider over the given fixture
func WithFixture(path string) Override {
	return func(c *Config) {
		if path == "" {
			return
		}
		c.Provider.Kind = ProviderMemory
		c.Provider.Fixture = path
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then envFile, then the process environment, then
// overrides. A missing envFile is not an error.
func Load(path, envFile string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	ints := map[string]*int{
		"CODETREE_GRPC_PORT":    &cfg.Server.GrpcPort,
		"CODETREE_METRICS_PORT": &cfg.Server.MetricsPort,
		"CODETREE_RETRY_MAX":    &cfg.Provider.RetryMax,
		"CODETREE_CACHE_SIZE":   &cfg.Provider.CacheSize,
		"CODETREE_CONCURRENCY":  &cfg.Hierarchy.Concurrency,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
			*dst = i
		}
	}

	durations := map[string]*time.Duration{
		"CODETREE_SHUTDOWN_TIMEOUT": &cfg.Server.ShutdownTimeout,
		"CODETREE_TIMEOUT":          &cfg.Provider.Timeout,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
			*dst = d
		}
	}

	strs := map[string]*string{
		"CODETREE_LOG_LEVEL": &cfg.Log.Level,
		"CODETREE_PROVIDER":  &cfg.Provider.Kind,
		"CODETREE_FIXTURE":   &cfg.Provider.Fixture,
		"CODETREE_DSN":       &cfg.Provider.DSN,
		"CODETREE_BASE_URL":  &cfg.Provider.BaseURL,
	}
	for name, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("CODETREE_LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: CODETREE_LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = b
	}

	return nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if err := validPort("server.grpc_port", c.Server.GrpcPort); err != nil {
		return err
	}
	if c.Server.MetricsPort != 0 {
		if err := validPort("server.metrics_port", c.Server.MetricsPort); err != nil {
			return err
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}

	switch c.Provider.Kind {
	case ProviderMemory:
		if c.Provider.Fixture == "" {
			return errors.New("provider.fixture is required for the memory provider")
		}
	case ProviderSQL:
		if c.Provider.DSN == "" {
			return errors.New("provider.dsn is required for the sql provider")
		}
	case ProviderHTTP:
		if c.Provider.BaseURL == "" {
			return errors.New("provider.base_url is required for the http provider")
		}
	default:
		return fmt.Errorf("provider.kind: unknown provider %q", c.Provider.Kind)
	}

	if c.Provider.RetryMax < 0 {
		return errors.New("provider.retry_max must not be negative")
	}
	if c.Provider.CacheSize < 0 {
		return errors.New("provider.cache_size must not be negative")
	}
	if c.Hierarchy.Concurrency < 1 {
		return errors.New("hierarchy.concurrency must be at least 1")
	}

	return nil
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s: port %d out of range", name, port)
	}
	return nil
}
