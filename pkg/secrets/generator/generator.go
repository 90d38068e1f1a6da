// Package generator produces secret values: constants, random strings drawn
// from character sets, and UUIDs.
package generator

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// DefaultLength is the length of generated strings when none is configured.
const DefaultLength = 32

// Generator produces a secret value.
type Generator interface {
	Generate() (string, error)
}

// Case selects the letters included in alphabetic character sets.
type Case string

const (
	// CaseLower uses a-z. Unrecognised cases fall back to it.
	CaseLower Case = "lower"
	// CaseUpper uses A-Z.
	CaseUpper Case = "upper"
	// CaseBoth uses A-Z and a-z.
	CaseBoth Case = "both"
)

var (
	lowercaseCharacters = runeRange('a', 'z')
	uppercaseCharacters = runeRange('A', 'Z')
	numberCharacters    = runeRange('0', '9')
)

func runeRange(from, to rune) []rune {
	out := make([]rune, 0, to-from+1)
	for r := from; r <= to; r++ {
		out = append(out, r)
	}
	return out
}

// ============================================================================
// Constant
// ============================================================================

// Constant always generates the same value.
type Constant struct {
	value string
}

// NewConstant returns a generator for value.
func NewConstant(value string) *Constant {
	return &Constant{value: value}
}

// Generate returns the constant value.
func (c *Constant) Generate() (string, error) {
	return c.value, nil
}

// ============================================================================
// Character sets
// ============================================================================

// CharacterSet generates strings of a fixed length whose characters are
// drawn uniformly at random from a set.
type CharacterSet struct {
	characters []rune
	length     int
	random     io.Reader
}

// Option configures a CharacterSet.
type Option func(*CharacterSet)

// WithLength sets the generated length. Non-positive values keep the default.
func WithLength(length int) Option {
	return func(c *CharacterSet) {
		if length > 0 {
			c.length = length
		}
	}
}

// WithRandom sets the source of randomness. Defaults to crypto/rand.Reader.
func WithRandom(r io.Reader) Option {
	return func(c *CharacterSet) {
		if r != nil {
			c.random = r
		}
	}
}

// NewCharacterSet returns a generator drawing from characters.
func NewCharacterSet(characters []rune, opts ...Option) *CharacterSet {
	c := &CharacterSet{
		characters: characters,
		length:     DefaultLength,
		random:     rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Length returns the number of characters generated.
func (c *CharacterSet) Length() int {
	return c.length
}

// Generate returns a random string of Length characters.
//
// Indices are sampled with crypto/rand.Int, which rejects out-of-range draws
// instead of reducing them modulo the set size, so every character is
// equally likely.
func (c *CharacterSet) Generate() (string, error) {
	if len(c.characters) == 0 {
		return "", fmt.Errorf("character set is empty")
	}

	size := big.NewInt(int64(len(c.characters)))

	var sb strings.Builder
	sb.Grow(c.length)
	for i := 0; i < c.length; i++ {
		n, err := rand.Int(c.random, size)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		sb.WriteRune(c.characters[n.Int64()])
	}
	return sb.String(), nil
}

// alphabet returns the letters for c. Uppercase letters come first when both
// cases are used.
func alphabet(c Case) []rune {
	var characters []rune
	if c == CaseUpper || c == CaseBoth {
		characters = append(characters, uppercaseCharacters...)
	}
	if c != CaseUpper {
		characters = append(characters, lowercaseCharacters...)
	}
	return characters
}

// NewAlphabetic returns a generator of letters in the given case.
func NewAlphabetic(c Case, opts ...Option) *CharacterSet {
	return NewCharacterSet(alphabet(c), opts...)
}

// NewNumeric returns a generator of decimal digits.
func NewNumeric(opts ...Option) *CharacterSet {
	return NewCharacterSet(numberCharacters, opts...)
}

// NewAlphanumeric returns a generator of letters in the given case and
// digits.
func NewAlphanumeric(c Case, opts ...Option) *CharacterSet {
	characters := append(alphabet(c), numberCharacters...)
	return NewCharacterSet(characters, opts...)
}

// ============================================================================
// UUID
// ============================================================================

// UUID generates random (version 4) UUIDs in canonical form.
type UUID struct {
	random io.Reader
}

// NewUUID returns a UUID generator reading from random, or crypto/rand when
// random is nil.
func NewUUID(random io.Reader) *UUID {
	if random == nil {
		random = rand.Reader
	}
	return &UUID{random: random}
}

// Generate returns a new UUID string.
func (u *UUID) Generate() (string, error) {
	id, err := uuid.NewRandomFromReader(u.random)
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return id.String(), nil
}

var (
	_ Generator = (*Constant)(nil)
	_ Generator = (*CharacterSet)(nil)
	_ Generator = (*UUID)(nil)
)
