package constants

import "time"

// Artifact TTLs. Internally everything is compared in milliseconds since
// epoch, so the durations are exposed in ms as well.
const (
	DefaultExtractionTTL = 7 * 24 * time.Hour
	DefaultPredictionTTL = 7 * 24 * time.Hour

	DefaultExtractionTTLMillis = int64(DefaultExtractionTTL / time.Millisecond)
	DefaultPredictionTTLMillis = int64(DefaultPredictionTTL / time.Millisecond)
)

// SchemaVersion tags every persisted artifact so a future migration pass can
// recognize what wrote it. No migration logic exists today.
const SchemaVersion = 1

// DefaultQuestionConfidence substitutes for a per-question score the provider
// did not supply. Inherited from the product spreadsheet; review before
// changing.
const DefaultQuestionConfidence = 0.8
