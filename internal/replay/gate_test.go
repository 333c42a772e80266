package replay

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"examextractor/internal/artifacts"
	"examextractor/internal/entity"
	"examextractor/internal/hashing"
	"examextractor/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testGate(t *testing.T, enabled bool) (*Gate, *artifacts.Manager) {
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
	return NewGate(manager, enabled, testLogger()), manager
}

func seedCompleted(t *testing.T, m *artifacts.Manager, content []byte) string {
	t.Helper()
	ctx := context.Background()
	a, err := m.CreateArtifactForFile(ctx, artifacts.UploadedFile{
		Name: "paper.pdf", MimeType: "application/pdf", Content: content,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.MarkExtractionStarted(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	questions := []entity.Question{{ID: "q1", FullText: "What is inertia?"}}
	if _, err := m.CompleteExtraction(ctx, a.ID, questions, nil); err != nil {
		t.Fatal(err)
	}
	return a.SourceFile.ContentHash
}

func TestDisabledGateNeverReplays(t *testing.T) {
	gate, manager := testGate(t, false)
	hash := seedCompleted(t, manager, []byte("cached content"))

	questions, ok, err := gate.GetReplayQuestions(context.Background(), hash)
	if err != nil {
		t.Fatal(err)
	}
	if ok || questions != nil {
		t.Error("disabled gate must report no replay available")
	}
}

func TestEnabledGateReplaysCompletedArtifact(t *testing.T) {
	gate, manager := testGate(t, true)
	hash := seedCompleted(t, manager, []byte("cached content"))

	questions, ok, err := gate.GetReplayQuestions(context.Background(), hash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(questions) != 1 || questions[0].ID != "q1" {
		t.Errorf("want replayed questions, got ok=%v questions=%+v", ok, questions)
	}
}

func TestEnabledGateFallsThroughOnMiss(t *testing.T) {
	gate, _ := testGate(t, true)

	_, ok, err := gate.GetReplayQuestions(context.Background(), hashing.HashBytes([]byte("never seen")))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("miss must fall through to the live path")
	}
}

func TestToggle(t *testing.T) {
	gate, _ := testGate(t, false)
	if gate.Enabled() {
		t.Fatal("gate should start disabled")
	}
	gate.SetEnabled(true)
	if !gate.Enabled() {
		t.Error("gate did not enable")
	}
}
