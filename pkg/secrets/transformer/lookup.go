package transformer

import (
	"fmt"
	"strings"
)

// Transformer types accepted by Lookup.
const (
	TypeIdentity = "identity"
	TypeTemplate = "template"
)

// Spec describes a transformer in configuration.
type Spec struct {
	// Type is identity (default when empty) or template
	Type string `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=identity template"`

	// Content is the inline template source
	Content string `mapstructure:"content" yaml:"content,omitempty"`

	// File is a template file, used when Content is empty
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Lookup builds the transformer described by spec.
func Lookup(spec Spec) (Transformer, error) {
	switch strings.ToLower(spec.Type) {
	case "", TypeIdentity:
		return Identity(), nil
	case TypeTemplate:
		if spec.Content != "" {
			return NewTemplate(spec.Content)
		}
		if spec.File != "" {
			return NewTemplateFromFile(spec.File)
		}
		return nil, fmt.Errorf("template transformer requires content or file")
	default:
		return nil, fmt.Errorf("unknown transformer type: %q", spec.Type)
	}
}
