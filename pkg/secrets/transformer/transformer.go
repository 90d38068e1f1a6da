// Package transformer turns generated secret values into the content that is
// actually stored, for example by embedding them in a configuration snippet.
package transformer

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// Transformer maps a generated value to the content to store.
type Transformer interface {
	Transform(value string) (string, error)
}

// identity returns values unchanged.
type identity struct{}

// Identity returns a transformer that returns its input unchanged.
func Identity() Transformer {
	return identity{}
}

func (identity) Transform(value string) (string, error) {
	return value, nil
}

// templateData is the data passed to templates. The value is exposed as
// {{ .Value }}.
type templateData struct {
	Value string
}

// Template renders a text/template with the generated value.
type Template struct {
	tmpl *template.Template
}

// NewTemplate parses content as a template.
//
// Templates reference the value as {{ .Value }}. Referencing any other field
// fails when the template is rendered.
//
// Parameters:
//   - content: Template source
//
// Returns:
//   - *Template: Parsed transformer
//   - error: Parse error
func NewTemplate(content string) (*Template, error) {
	tmpl, err := template.New("secret").Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Template{tmpl: tmpl}, nil
}

// NewTemplateFromFile reads and parses the template at filename.
func NewTemplateFromFile(filename string) (*Template, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", filename, err)
	}

	t, err := NewTemplate(string(content))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", filename, err)
	}
	return t, nil
}

// Transform renders the template with value.
func (t *Template) Transform(value string) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, templateData{Value: value}); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

var (
	_ Transformer = identity{}
	_ Transformer = (*Template)(nil)
)
