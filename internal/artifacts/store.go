package artifacts

import (
	"database/sql"
	"log/slog"
	"time"

	"examextractor/internal/entity"
	"examextractor/internal/store"
)

// Collection is the table name for extraction artifacts.
const Collection = "extraction_artifacts"

// NewStore wires the generic record store for extraction artifacts. The
// secondary index is the source-file content hash, which is what makes
// content-based dedup a single lookup.
func NewStore(db *sql.DB, logger *slog.Logger) (*store.RecordStore[entity.ExtractionArtifact], error) {
	return store.NewRecordStore(db, store.Options[entity.ExtractionArtifact]{
		Collection: Collection,
		ID:         func(a *entity.ExtractionArtifact) string { return a.ID.String() },
		IndexKey:   func(a *entity.ExtractionArtifact) string { return a.SourceFile.ContentHash },
		ExpiresAt:  func(a *entity.ExtractionArtifact) *time.Time { return a.ExpiresAt },
	}, logger)
}
