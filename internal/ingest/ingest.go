package ingest

import (
	"context"
	"time"
)

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	ArtifactID   string
	Deduplicated bool
	HashHex      string
	FileExt      string
	UploadedAt   time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior callers depend on.
type Ingestor interface {
	// IngestPath ingests a single path.
	IngestPath(ctx context.Context, path string) (Result, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error)
}
