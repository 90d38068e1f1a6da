package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/larder/pkg/secrets/generator"
	"github.com/marmos91/larder/pkg/secrets/transformer"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are filled in for every backend section so
//     that generated config files document all of them
//   - Tasks are never added; an empty task list is valid
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStorageDefaults(&cfg.Storage)
	applyRunnerDefaults(&cfg.Runner)
	applyTaskDefaults(cfg.Tasks)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output such as retrieved secrets
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyStorageDefaults sets storage and backend defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.BasePath == "" {
		cfg.BasePath = "/"
	}

	applyBackendDefaults(&cfg.Backend)
}

// applyBackendDefaults sets backend defaults.
func applyBackendDefaults(cfg *BackendConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	// Initialize maps if nil
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.Redis == nil {
		cfg.Redis = make(map[string]any)
	}

	dataDir := getDataDir()

	setDefault(cfg.Filesystem, "root", filepath.Join(dataDir, "secrets"))

	setDefault(cfg.Badger, "db_path", filepath.Join(dataDir, "badger"))
	setDefault(cfg.Badger, "sync_writes", true)

	setDefault(cfg.S3, "region", "us-east-1")
	setDefault(cfg.S3, "max_retries", 10)

	setDefault(cfg.Redis, "address", "localhost:6379")
	setDefault(cfg.Redis, "db", 0)
	setDefault(cfg.Redis, "key_prefix", "larder:")
}

func setDefault(section map[string]any, key string, value any) {
	if _, ok := section[key]; !ok {
		section[key] = value
	}
}

// applyRunnerDefaults sets task runner defaults.
func applyRunnerDefaults(cfg *RunnerConfig) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
}

// applyTaskDefaults sets per-task defaults.
func applyTaskDefaults(tasks []TaskConfig) {
	for i := range tasks {
		t := &tasks[i]

		if t.Type == "" {
			t.Type = TaskTypeGenerate
		}
		t.Type = strings.ToLower(t.Type)

		// Path defaults to the task ID, resolved against the base path
		if t.Type == TaskTypeGenerate && t.Path == "" {
			t.Path = t.ID
		}

		if t.Generator != nil {
			t.Generator.Type = strings.ToLower(t.Generator.Type)
			t.Generator.Case = strings.ToLower(t.Generator.Case)
		}
		if t.Transformer != nil {
			t.Transformer.Type = strings.ToLower(t.Transformer.Type)
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
//
// Unlike ApplyDefaults on an empty Config, the result contains example tasks.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Tasks: []TaskConfig{
			{
				ID:   "database_password",
				Type: TaskTypeGenerate,
				Path: "database/password",
				Generator: &generator.Spec{
					Type:   generator.TypeAlphanumeric,
					Length: generator.DefaultLength,
					Case:   string(generator.CaseBoth),
				},
				Transformer: &transformer.Spec{
					Type:    transformer.TypeTemplate,
					Content: "password: {{ .Value }}\n",
				},
			},
			{
				ID:   "api_token",
				Type: TaskTypeGenerate,
				Path: "api/token",
				Generator: &generator.Spec{
					Type: generator.TypeUUID,
				},
			},
			{
				ID:   "placeholder",
				Type: TaskTypePlaceholder,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
