package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/larder/pkg/secrets/generator"
	"github.com/marmos91/larder/pkg/secrets/transformer"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Validate task IDs are unique
	ids := make(map[string]bool)
	for i, t := range cfg.Tasks {
		if ids[t.ID] {
			return fmt.Errorf("tasks[%d]: duplicate task id %q", i, t.ID)
		}
		ids[t.ID] = true
	}

	for i, t := range cfg.Tasks {
		if t.Type == TaskTypePlaceholder {
			continue
		}

		// Generate tasks need somewhere to put the value and a way to make it
		if t.Generator == nil {
			return fmt.Errorf("tasks[%d]: generate task %q requires a generator", i, t.ID)
		}
		if t.Path == "" {
			return fmt.Errorf("tasks[%d]: generate task %q requires a path", i, t.ID)
		}

		if t.Generator.Type == generator.TypeCharacterSet && t.Generator.Value == "" {
			return fmt.Errorf("tasks[%d]: character_set generator requires a value", i)
		}

		if t.Transformer != nil && t.Transformer.Type == transformer.TypeTemplate &&
			t.Transformer.Content == "" && t.Transformer.File == "" {
			return fmt.Errorf("tasks[%d]: template transformer requires content or file", i)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
