package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lehigh-university-libraries/medreport/internal/models"
)

const schemaTitle = "MedicalReportSummary"

// Schema returns the JSON Schema for models.MedicalReportSummary as a generic map.
// The same map is sent to the server as the output constraint and used to
// validate the reply. Unknown keys are allowed and dropped on decode.
func Schema() map[string]any {
	props := make(map[string]any, len(models.Fields))
	required := make([]string, 0, len(models.Fields))
	for _, f := range models.Fields {
		props[f.Key] = map[string]any{
			"title":       f.Title,
			"description": f.Description,
			"type":        "string",
		}
		required = append(required, f.Key)
	}

	return map[string]any{
		"title":      schemaTitle,
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// SchemaJSON returns the schema indented with two spaces
func SchemaJSON() (string, error) {
	b, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	return string(b), nil
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(Schema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// validate checks an already decoded JSON value against the schema
func validate(v any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
