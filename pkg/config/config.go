package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/larder/pkg/secrets/generator"
	"github.com/marmos91/larder/pkg/secrets/transformer"
	"github.com/marmos91/larder/pkg/storage/throttle"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the complete larder configuration.
//
// This structure captures all configurable aspects of larder:
//   - Logging configuration
//   - Storage: base path, backend selection and backend-specific settings
//   - Task runner settings
//   - Secret tasks (what to generate, how to transform it, where to store it)
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (LARDER_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Backend Configuration Pattern:
// Each backend defines its own configuration. The BackendConfig struct holds
// type-specific sections (e.g., backend.filesystem, backend.s3) and only the
// section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Storage selects and configures where secrets are kept
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Runner controls how tasks are executed
	Runner RunnerConfig `mapstructure:"runner" yaml:"runner"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Tasks defines the secrets larder knows how to produce
	Tasks []TaskConfig `mapstructure:"tasks" yaml:"tasks" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StorageConfig specifies the storage facade and its backend.
type StorageConfig struct {
	// BasePath anchors relative secret paths (e.g., "/" or "/secrets")
	BasePath string `mapstructure:"base_path" yaml:"base_path" validate:"required,startswith=/"`

	// Backend selects the storage medium
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`

	// RateLimit throttles backend operations (zero: unlimited)
	RateLimit throttle.Config `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// BackendConfig specifies backend configuration.
//
// The Type field determines which backend implementation is used.
// Only the corresponding type-specific configuration section is used.
type BackendConfig struct {
	// Type specifies which backend implementation to use
	// Valid values: memory, filesystem, badger, s3, redis
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem badger s3 redis"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// Redis contains Redis-specific configuration
	// Only used when Type = "redis"
	Redis map[string]any `mapstructure:"redis" yaml:"redis,omitempty"`
}

// RunnerConfig controls task execution.
type RunnerConfig struct {
	// Concurrency is the number of tasks run in parallel by "generate --all"
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" validate:"gte=1"`

	// Timeout bounds a single CLI invocation
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
}

// MetricsConfig controls Prometheus metrics collection.
//
// Larder exits after each command, so metrics are written to a file for the
// node_exporter textfile collector instead of being served.
type MetricsConfig struct {
	// Enabled turns metrics collection on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is where metrics are written when a command finishes.
	// Required when Enabled is true.
	Textfile string `mapstructure:"textfile" yaml:"textfile,omitempty" validate:"required_if=Enabled true"`
}

// Task types.
const (
	TaskTypeGenerate    = "generate"
	TaskTypePlaceholder = "placeholder"
)

// TaskConfig defines a single task.
type TaskConfig struct {
	// ID names the task and the secret it produces
	ID string `mapstructure:"id" yaml:"id" validate:"required"`

	// Type is generate (default) or placeholder
	Type string `mapstructure:"type" yaml:"type,omitempty" validate:"omitempty,oneof=generate placeholder"`

	// Path is where the secret is stored, resolved against storage.base_path
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// Generator produces the raw value
	Generator *generator.Spec `mapstructure:"generator" yaml:"generator,omitempty" validate:"omitempty"`

	// Transformer maps the value to stored content (default: identity)
	Transformer *transformer.Spec `mapstructure:"transformer" yaml:"transformer,omitempty" validate:"omitempty"`

	// Retries is how many times a failed store is retried
	Retries uint `mapstructure:"retries" yaml:"retries,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LARDER_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	return LoadWithFlags(configPath, nil)
}

// FlagBindings maps command line flag names to the configuration keys they
// override. Flags only take effect when set explicitly.
var FlagBindings = map[string]string{
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"log-output":  "logging.output",
	"backend":     "storage.backend.type",
	"base-path":   "storage.base_path",
	"concurrency": "runner.concurrency",
	"timeout":     "runner.timeout",
	"metrics":     "metrics.textfile",
}

// LoadWithFlags is Load with command line flags layered on top of the
// environment. Flags present in flags and named in FlagBindings are bound;
// others are ignored. A nil flag set behaves like Load.
func LoadWithFlags(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use LARDER_ prefix and underscores
	// Example: LARDER_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("LARDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about. Registering the
	// scalar keys lets env vars set them even when the file omits them.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/larder/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// envKeys are the settings that can be overridden from the environment
// without appearing in the config file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"storage.base_path",
	"storage.backend.type",
	"storage.rate_limit.ops_per_second",
	"storage.rate_limit.burst",
	"runner.concurrency",
	"runner.timeout",
	"metrics.enabled",
	"metrics.textfile",
}

// bindFlags binds every flag in FlagBindings that flags defines.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing file is acceptable: use defaults. Viper reports a missing
		// search-path file with ConfigFileNotFoundError and a missing explicit
		// file with the underlying fs error.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		// Other errors are problems
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "larder")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "larder")
}

// getDataDir returns the default directory for on-disk backends.
//
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share, or ./larder-data.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "larder")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "larder-data"
	}

	return filepath.Join(home, ".local", "share", "larder")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
