package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InputSignature is the composite cache key for a prediction run: the sorted
// set of contributing extraction-artifact ids plus an optional syllabus-text
// hash. Hash is derived deterministically from both, so selection order of
// the inputs never defeats deduplication.
type InputSignature struct {
	ArtifactIDs   []string `json:"artifact_ids"`
	QuestionCount int      `json:"question_count"`
	Hash          string   `json:"hash"`
	SyllabusHash  *string  `json:"syllabus_hash,omitempty"`
}

// PredictionArtifact is a cached prediction run over a set of extraction
// artifacts. It references its sources by id only; deleting a source does
// not cascade here.
type PredictionArtifact struct {
	ID             uuid.UUID       `json:"id"`
	SchemaVersion  int             `json:"schema_version"`
	InputSignature InputSignature  `json:"input_signature"`
	SyllabusText   string          `json:"syllabus_text,omitempty"`
	Result         json.RawMessage `json:"result"`
	DurationMs     int64           `json:"duration_ms,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
}

// Expired reports whether the artifact's TTL has passed at the given time.
func (p *PredictionArtifact) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}
