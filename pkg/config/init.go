package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a sample configuration file to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or on I/O failure
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a sample configuration file to configPath,
// creating parent directories as needed.
func InitConfigToPath(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may end up holding backend credentials
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// configSection is one top-level key of the generated file.
type configSection struct {
	comment string
	key     string
	value   any
}

// generateYAMLWithComments renders cfg as YAML, one commented block per
// top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var sb strings.Builder

	sb.WriteString("# Larder Configuration File\n")
	sb.WriteString("#\n")
	sb.WriteString("# Every setting can be overridden with an environment variable:\n")
	sb.WriteString("# LARDER_<SECTION>_<KEY>, e.g. LARDER_LOGGING_LEVEL=DEBUG\n\n")

	sections := []configSection{
		{
			comment: "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json),\n# output (stderr, stdout or a file path; stdout mixes logs into command output)",
			key:     "logging",
			value:   cfg.Logging,
		},
		{
			comment: "Storage: relative secret paths resolve under base_path. backend.type\n# selects memory, filesystem, badger, s3 or redis; only the matching\n# section is used. rate_limit.ops_per_second 0 disables throttling.",
			key:     "storage",
			value:   cfg.Storage,
		},
		{
			comment: "Runner: parallelism for 'generate --all' and the per-command timeout",
			key:     "runner",
			value:   cfg.Runner,
		},
		{
			comment: "Metrics: when enabled, Prometheus metrics are written to textfile\n# (node_exporter textfile collector format) after each command",
			key:     "metrics",
			value:   cfg.Metrics,
		},
		{
			comment: "Tasks: each generate task produces a value (constant, alphabetic,\n# numeric, alphanumeric, character_set, uuid), optionally renders it\n# through a template ({{ .Value }}) and stores it at path.",
			key:     "tasks",
			value:   cfg.Tasks,
		},
	}

	for _, section := range sections {
		out, err := yaml.Marshal(map[string]any{section.key: section.value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s section: %w", section.key, err)
		}

		sb.WriteString("# ")
		sb.WriteString(section.comment)
		sb.WriteString("\n")
		sb.Write(out)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
