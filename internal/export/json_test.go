package export

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"examextractor/constants"
	"examextractor/internal/common"
	"examextractor/internal/entity"
)

func sampleArtifact() *entity.ExtractionArtifact {
	now := time.Now().UTC().Truncate(time.Millisecond)
	started := now.Add(-30 * time.Second)
	return &entity.ExtractionArtifact{
		ID:            uuid.New(),
		SchemaVersion: constants.SchemaVersion,
		SourceFile: entity.SourceFile{
			Name:        "physics-2023.pdf",
			ContentHash: "0badc0de0badc0de0badc0de0badc0de0badc0de0badc0de0badc0de0badc0de",
			SizeBytes:   2048,
			MimeType:    "application/pdf",
			UploadedAt:  now,
		},
		Extraction: entity.Extraction{
			Status:      constants.StatusComplete,
			StartedAt:   &started,
			CompletedAt: &now,
			DurationMs:  30000,
			Questions:   []entity.Question{{ID: "q1", FullText: "Define momentum.", Topic: "Mechanics"}},
			Confidence:  &entity.ExtractionConfidence{Overall: 0.8, PerQuestion: map[string]float64{"q1": 0.8}},
		},
		Provider:  entity.Provider{Name: "openai", Model: "gpt-4o-mini", PromptVersion: "v3"},
		CreatedAt: now,
	}
}

func TestJSONRoundtrip(t *testing.T) {
	original := sampleArtifact()

	data, err := ExportAsJSON(original)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseFromJSON(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if parsed.ID != original.ID {
		t.Errorf("id changed: %v vs %v", parsed.ID, original.ID)
	}
	if parsed.SourceFile.ContentHash != original.SourceFile.ContentHash {
		t.Error("content hash changed")
	}
	if len(parsed.Extraction.Questions) != 1 || parsed.Extraction.Questions[0].FullText != "Define momentum." {
		t.Errorf("questions changed: %+v", parsed.Extraction.Questions)
	}
	if parsed.Extraction.Confidence == nil || parsed.Extraction.Confidence.Overall != 0.8 {
		t.Error("confidence changed")
	}
}

func TestParseRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{nope"},
		{"missing id", `{"source_file":{"content_hash":"abc"},"extraction":{"status":"PENDING"}}`},
		{"missing source file", `{"id":"x","extraction":{"status":"PENDING"}}`},
		{"missing extraction", `{"id":"x","source_file":{"content_hash":"abc"}}`},
		{"bad status", `{"id":"x","source_file":{"content_hash":"abc"},"extraction":{"status":"DONE"}}`},
		{"missing content hash", `{"id":"x","source_file":{"name":"a.pdf"},"extraction":{"status":"PENDING"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFromJSON(tc.data)
			if !errors.Is(err, common.ErrValidation) {
				t.Errorf("want ErrValidation, got %v", err)
			}
		})
	}
}
