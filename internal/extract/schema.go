package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildExtractionJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the extraction payload. We pass it to the provider as a structured output
// constraint and also validate the response against it locally.
func BuildExtractionJSONSchema() map[string]any {
	question := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"id":                   map[string]any{"type": "string", "minLength": 1},
			"full_text":            map[string]any{"type": "string", "minLength": 1},
			"topic":                map[string]any{"type": "string"},
			"type":                 map[string]any{"type": "string"},
			"marks":                map[string]any{"type": "integer", "minimum": 0},
			"page_number":          map[string]any{"type": "integer", "minimum": 1},
			"main_question_number": map[string]any{"type": "string"},
			"sub_question_label":   map[string]any{"type": "string"},
			"confidence":           map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"id", "full_text"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"questions": map[string]any{"type": "array", "items": question},
		},
		"required": []string{"questions"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
