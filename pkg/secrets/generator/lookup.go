package generator

import (
	"fmt"
	"strings"
)

// Generator types accepted by Lookup.
const (
	TypeConstant     = "constant"
	TypeAlphabetic   = "alphabetic"
	TypeNumeric      = "numeric"
	TypeAlphanumeric = "alphanumeric"
	TypeCharacterSet = "character_set"
	TypeUUID         = "uuid"
)

// Spec describes a generator in configuration.
type Spec struct {
	// Type is one of the Type* constants
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=constant alphabetic numeric alphanumeric character_set uuid"`

	// Length of generated strings (default 32). Ignored by constant and uuid.
	Length int `mapstructure:"length" yaml:"length,omitempty" validate:"gte=0"`

	// Case for alphabetic and alphanumeric: lower (default), upper, both
	Case string `mapstructure:"case" yaml:"case,omitempty" validate:"omitempty,oneof=lower upper both"`

	// Value is the constant value, or the characters of a character_set
	Value string `mapstructure:"value" yaml:"value,omitempty"`
}

// Lookup builds the generator described by spec.
func Lookup(spec Spec, opts ...Option) (Generator, error) {
	opts = append([]Option{WithLength(spec.Length)}, opts...)
	c := Case(strings.ToLower(spec.Case))

	switch strings.ToLower(spec.Type) {
	case TypeConstant:
		return NewConstant(spec.Value), nil
	case TypeAlphabetic:
		return NewAlphabetic(c, opts...), nil
	case TypeNumeric:
		return NewNumeric(opts...), nil
	case TypeAlphanumeric:
		return NewAlphanumeric(c, opts...), nil
	case TypeCharacterSet:
		if spec.Value == "" {
			return nil, fmt.Errorf("character_set generator requires a non-empty value")
		}
		return NewCharacterSet([]rune(spec.Value), opts...), nil
	case TypeUUID:
		// Only the random source applies to UUIDs
		return NewUUID(NewCharacterSet(nil, opts...).random), nil
	default:
		return nil, fmt.Errorf("unknown generator type: %q", spec.Type)
	}
}
