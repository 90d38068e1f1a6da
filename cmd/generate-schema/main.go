// Command generate-schema writes the JSON schema of the Larder config file,
// for editor completion and validation of config.yaml.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/larder/pkg/config"
)

func main() {
	schemaJSON, err := generateSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	// Write to file
	outputFile := "config.schema.json"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", outputFile)
}

// generateSchema reflects config.Config into an indented JSON schema.
//
// Property names follow the yaml tags, which match the keys viper reads.
// Every property is optional because defaults fill in whatever is missing.
func generateSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true, // Inline all definitions for simplicity
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}

	schema := reflector.Reflect(&config.Config{})

	// Add schema metadata
	schema.Title = "Larder Configuration"
	schema.Description = "Configuration schema for the larder secret store"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return schemaJSON, nil
}
