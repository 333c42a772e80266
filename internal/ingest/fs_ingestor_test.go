package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"examextractor/internal/artifacts"
	"examextractor/internal/entity"
	"examextractor/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testIngestor(t *testing.T) (*FSIngestor, *artifacts.Manager) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(dbPath, 5*time.Second, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := artifacts.NewStore(db, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	manager := artifacts.NewManager(s, entity.Provider{Name: "openai"}, 0, testLogger())
	return NewFSIngestor(manager, testLogger()), manager
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestPathCreatesPendingArtifact(t *testing.T) {
	ing, manager := testIngestor(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := writeFile(t, dir, "paper.png", "image bytes")
	res, err := ing.IngestPath(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deduplicated {
		t.Error("first ingest must not deduplicate")
	}
	if res.ArtifactID == "" || res.HashHex == "" {
		t.Errorf("incomplete result: %+v", res)
	}

	questions, err := manager.GetAllQuestionsFromArtifacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 0 {
		t.Error("pending artifact should hold no questions yet")
	}
}

func TestIngestPathRejectsUnsupportedExtension(t *testing.T) {
	ing, _ := testIngestor(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "plain text")

	if _, err := ing.IngestPath(context.Background(), path); err == nil {
		t.Error("txt files must be rejected")
	}
}

func TestIngestDirectoryDeduplicatesCompletedContent(t *testing.T) {
	ing, manager := testIngestor(t)
	ctx := context.Background()
	dir := t.TempDir()

	first := writeFile(t, dir, "scan-a.png", "same content")
	res, err := ing.IngestPath(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	// Complete the artifact so the dedup gate can hit it.
	a, err := manager.ListArtifacts(ctx, false)
	if err != nil || len(a) != 1 {
		t.Fatalf("artifacts: %v, %d", err, len(a))
	}
	if _, err := manager.MarkExtractionStarted(ctx, a[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.CompleteExtraction(ctx, a[0].ID, []entity.Question{{ID: "q1", FullText: "Q?"}}, nil); err != nil {
		t.Fatal(err)
	}

	// A second directory holding identical bytes under another name, plus
	// one new file and one hidden file.
	dir2 := t.TempDir()
	writeFile(t, dir2, "scan-b.png", "same content")
	writeFile(t, dir2, "scan-c.png", "new content")
	writeFile(t, dir2, ".hidden.png", "ignored")

	results, stats, err := ing.IngestDirectory(ctx, dir2, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Matched != 2 || stats.Succeeded != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Deduplicated != 1 {
		t.Errorf("deduplicated = %d, want 1", stats.Deduplicated)
	}

	for _, r := range results {
		if filepath.Base(r.SourcePath) == "scan-b.png" {
			if !r.Deduplicated {
				t.Error("identical content not deduplicated")
			}
			if r.ArtifactID != res.ArtifactID {
				t.Error("dedup must return the original artifact")
			}
		}
	}

	// No second artifact was created for the duplicate content.
	all, err := manager.ListArtifacts(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("artifact count = %d, want 2 (original + new content)", len(all))
	}
}
