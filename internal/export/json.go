// Package export serializes artifacts for backup and interchange: JSON
// round-trips with schema validation on import, and an XLSX question-bank
// workbook.
package export

import (
	"encoding/json"

	"examextractor/internal/common"
	"examextractor/internal/entity"
	"examextractor/internal/extract"
)

// ExportAsJSON serializes one extraction artifact, pretty-printed for
// hand inspection.
func ExportAsJSON(artifact *entity.ExtractionArtifact) (string, error) {
	b, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", common.NewAppError("SERIALIZATION_ERROR", "marshal artifact", common.ErrSerialization)
	}
	return string(b), nil
}

// importSchema is the minimum shape an imported artifact must have before
// any store mutation happens: id, source_file and extraction are required.
func importSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string", "minLength": 1},
			"source_file": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":         map[string]any{"type": "string"},
					"content_hash": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []string{"content_hash"},
			},
			"extraction": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{
						"type": "string",
						"enum": []string{"PENDING", "EXTRACTING", "COMPLETE", "ERROR"},
					},
				},
				"required": []string{"status"},
			},
		},
		"required": []string{"id", "source_file", "extraction"},
	}
}

// ParseFromJSON validates and deserializes a previously exported artifact.
// Malformed payloads are rejected with common.ErrValidation before any
// deserialization side effects.
func ParseFromJSON(data string) (*entity.ExtractionArtifact, error) {
	raw := []byte(data)
	if err := extract.ValidateJSONAgainstSchema(importSchema(), raw); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}
	var artifact entity.ExtractionArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", "unmarshal artifact", common.ErrValidation)
	}
	return &artifact, nil
}
