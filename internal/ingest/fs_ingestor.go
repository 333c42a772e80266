package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"examextractor/constants"
	"examextractor/internal/artifacts"
)

// FSIngestor reads scanned papers from the local filesystem and turns each
// one into a pending extraction artifact, unless a completed artifact with
// the same content already exists.
type FSIngestor struct {
	Manager *artifacts.Manager
	logger  *slog.Logger
}

func NewFSIngestor(manager *artifacts.Manager, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Manager: manager, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (Result, error) {
	var out Result

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension %q", ext)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		i.logger.Error("read error", "path", abs, "error", err)
		return out, err
	}

	// Dedup gate first; only a miss creates a new pending artifact.
	cached, err := i.Manager.CheckForCachedExtraction(ctx, content)
	if err != nil {
		return out, err
	}
	if cached != nil {
		return Result{
			SourcePath:   abs,
			ArtifactID:   cached.ID.String(),
			Deduplicated: true,
			HashHex:      cached.SourceFile.ContentHash,
			FileExt:      ext,
			UploadedAt:   cached.SourceFile.UploadedAt,
		}, nil
	}

	artifact, err := i.Manager.CreateArtifactForFile(ctx, artifacts.UploadedFile{
		Name:     filepath.Base(abs),
		MimeType: MimeTypeForExt(ext),
		Content:  content,
	})
	if err != nil {
		return out, err
	}

	out = Result{
		SourcePath: abs,
		ArtifactID: artifact.ID.String(),
		HashHex:    artifact.SourceFile.ContentHash,
		FileExt:    ext,
		UploadedAt: artifact.SourceFile.UploadedAt,
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested, and calls
// IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !AllowedExt(ext) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, Result{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
