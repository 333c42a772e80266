package entity

import (
	"time"

	"github.com/google/uuid"

	"examextractor/constants"
)

// SourceFile describes the uploaded file an artifact was derived from.
// Immutable once set.
type SourceFile struct {
	Name        string    `json:"name"`
	ContentHash string    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	MimeType    string    `json:"mime_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Provider records which extraction recipe produced a result. Immutable.
type Provider struct {
	Name          string `json:"name"`
	Model         string `json:"model"`
	PromptVersion string `json:"prompt_version"`
}

// ExtractionConfidence holds the overall and per-question confidence scores
// computed at the complete transition. Never mutated afterward.
type ExtractionConfidence struct {
	Overall     float64            `json:"overall"`
	PerQuestion map[string]float64 `json:"per_question,omitempty"`
}

// ExtractionError is the terminal failure descriptor for an artifact.
// Retryable lets the UI distinguish "try again" from "fix your input".
type ExtractionError struct {
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Extraction is the mutable sub-record of an artifact, driven through the
// pending -> extracting -> complete|error state machine by the manager.
type Extraction struct {
	Status      constants.ExtractionStatus `json:"status"`
	StartedAt   *time.Time                 `json:"started_at,omitempty"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	DurationMs  int64                      `json:"duration_ms,omitempty"`
	Questions   []Question                 `json:"questions"`
	Confidence  *ExtractionConfidence      `json:"confidence,omitempty"`
	Error       *ExtractionError           `json:"error,omitempty"`
}

// ExtractionArtifact is the persisted, cacheable result of one extraction
// call over one source file. Owned exclusively by the extraction manager
// once created.
type ExtractionArtifact struct {
	ID            uuid.UUID  `json:"id"`
	SchemaVersion int        `json:"schema_version"`
	SourceFile    SourceFile `json:"source_file"`
	Extraction    Extraction `json:"extraction"`
	Provider      Provider   `json:"provider"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Locked        bool       `json:"locked"`
}

// Expired reports whether the artifact's TTL has passed at the given time.
// Locked artifacts carry a nil ExpiresAt and never expire.
func (a *ExtractionArtifact) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}
