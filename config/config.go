package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/INLOpen/textstore/core"
	"gopkg.in/yaml.v3"
)

// StoreConfig holds text store build and read settings.
type StoreConfig struct {
	BlockSizeBytes int `yaml:"block_size_bytes"`
	// CacheCapacity is the number of decoded blocks a reader keeps. 0 uses
	// the reader default, a negative value disables the cache.
	CacheCapacity int `yaml:"cache_capacity"`
	// CompressionReport lists the compressors compared by the stats command.
	CompressionReport []string `yaml:"compression_report"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Output string `yaml:"output"` // e.g., "stderr", "stdout", "file", "none"
	File   string `yaml:"file"`   // Path to the log file, used if output is "file"
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // e.g., "localhost:4317" for gRPC OTLP collector
	Protocol string `yaml:"protocol"` // "grpc" or "http"
}

// VerifyConfig holds settings for the verify command.
type VerifyConfig struct {
	Workers int    `yaml:"workers"`
	Timeout string `yaml:"timeout"` // empty or "0" means no limit
}

// Config is the top-level configuration struct.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Verify  VerifyConfig  `yaml:"verify"`
}

// ParseDuration parses a duration string. Returns the default duration if the string is empty or invalid.
// Logs a warning if the string is invalid but not empty.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("Invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			BlockSizeBytes:    16 * 1024, // 16 KiB
			CacheCapacity:     32,
			CompressionReport: []string{"none", "snappy", "lz4", "zstd", "bwt"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			File:   "textstore.log",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
		Verify: VerifyConfig{
			Workers: 4,
			Timeout: "",
		},
	}
}

// Load reads configuration from an io.Reader.
// This is the core logic, separated for testability.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	// If the reader is nil, it's like an empty file, return defaults.
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	// Unmarshal YAML into the config struct, overwriting defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// If file doesn't exist, return default config by calling Load with a nil reader.
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.BlockSizeBytes < 1 {
		errs = append(errs, fmt.Errorf("store.block_size_bytes must be at least 1, got %d", c.Store.BlockSizeBytes))
	}
	for _, name := range c.Store.CompressionReport {
		if _, ok := core.ParseCompressionType(name); !ok {
			errs = append(errs, fmt.Errorf("store.compression_report: unknown compressor %q", name))
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Output {
	case "stderr", "stdout", "none":
	case "file":
		if c.Logging.File == "" {
			errs = append(errs, errors.New("logging.file is required when logging.output is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("logging.output: unknown output %q", c.Logging.Output))
	}
	if c.Tracing.Enabled && c.Tracing.Protocol != "grpc" && c.Tracing.Protocol != "http" {
		errs = append(errs, fmt.Errorf("tracing.protocol: unknown protocol %q", c.Tracing.Protocol))
	}
	if c.Verify.Workers < 1 {
		errs = append(errs, fmt.Errorf("verify.workers must be at least 1, got %d", c.Verify.Workers))
	}
	if c.Verify.Timeout != "" && c.Verify.Timeout != "0" {
		if _, err := time.ParseDuration(c.Verify.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("verify.timeout: %w", err))
		}
	}
	return errors.Join(errs...)
}
