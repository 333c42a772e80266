package predictions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"examextractor/internal/common"
	"examextractor/internal/entity"
	"examextractor/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testManager(t *testing.T) (*Manager, *store.RecordStore[entity.PredictionArtifact]) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(dbPath, 5*time.Second, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(s, 0, testLogger()), s
}

func TestSignatureIsOrderInsensitive(t *testing.T) {
	a := ComputeSignature([]string{"artifact-a", "artifact-b"}, 10, "chapter 1, chapter 2")
	b := ComputeSignature([]string{"artifact-b", "artifact-a"}, 10, "chapter 1, chapter 2")

	if a.Hash != b.Hash {
		t.Errorf("selection order changed the hash: %s vs %s", a.Hash, b.Hash)
	}
	if a.ArtifactIDs[0] != "artifact-a" {
		t.Errorf("ids not sorted: %v", a.ArtifactIDs)
	}
}

func TestSignatureDependsOnSyllabus(t *testing.T) {
	base := ComputeSignature([]string{"a", "b"}, 5, "")
	withSyllabus := ComputeSignature([]string{"a", "b"}, 5, "mechanics syllabus")
	otherSyllabus := ComputeSignature([]string{"a", "b"}, 5, "optics syllabus")

	if base.Hash == withSyllabus.Hash {
		t.Error("syllabus text must participate in the key")
	}
	if withSyllabus.Hash == otherSyllabus.Hash {
		t.Error("different syllabus text must produce different keys")
	}
	if base.SyllabusHash != nil {
		t.Error("empty syllabus must not record a hash")
	}
	if withSyllabus.SyllabusHash == nil {
		t.Error("syllabus hash missing")
	}

	// Cosmetic whitespace edits do not change identity.
	spaced := ComputeSignature([]string{"a", "b"}, 5, "  mechanics   syllabus ")
	if spaced.Hash != withSyllabus.Hash {
		t.Error("whitespace normalization missing from syllabus hashing")
	}
}

func TestSaveAndFindByHash(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	sig := ComputeSignature([]string{"a", "b"}, 12, "syllabus")
	saved, err := m.Save(ctx, sig, "syllabus", json.RawMessage(`{"topics":[]}`), 1500)
	if err != nil {
		t.Fatal(err)
	}

	// A lookup from a differently ordered selection still hits.
	lookup := ComputeSignature([]string{"b", "a"}, 12, "syllabus")
	hit, err := m.FindByHash(ctx, lookup.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if hit == nil || hit.ID != saved.ID {
		t.Fatalf("want cache hit on %v, got %+v", saved.ID, hit)
	}
	if hit.DurationMs != 1500 {
		t.Errorf("durationMs = %d", hit.DurationMs)
	}
}

func TestFindByHashPrefersMostRecentNonExpired(t *testing.T) {
	m, s := testManager(t)
	ctx := context.Background()

	sig := ComputeSignature([]string{"a"}, 3, "")
	older, err := m.Save(ctx, sig, "", json.RawMessage(`{"run":1}`), 0)
	if err != nil {
		t.Fatal(err)
	}
	// Force distinct creation times at millisecond store resolution.
	older.CreatedAt = older.CreatedAt.Add(-time.Minute)
	if err := s.Put(ctx, older); err != nil {
		t.Fatal(err)
	}
	newer, err := m.Save(ctx, sig, "", json.RawMessage(`{"run":2}`), 0)
	if err != nil {
		t.Fatal(err)
	}

	hit, err := m.FindByHash(ctx, sig.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if hit == nil || hit.ID != newer.ID {
		t.Fatalf("want newest run, got %+v", hit)
	}

	// Expire the newer one; the older remains the best match.
	past := time.Now().UTC().Add(-time.Hour)
	newer.ExpiresAt = &past
	if err := s.Put(ctx, newer); err != nil {
		t.Fatal(err)
	}
	hit, err = m.FindByHash(ctx, sig.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if hit == nil || hit.ID != older.ID {
		t.Fatalf("want surviving older run, got %+v", hit)
	}
}

func TestSaveRejectsEmptySignature(t *testing.T) {
	m, _ := testManager(t)
	_, err := m.Save(context.Background(), entity.InputSignature{}, "", nil, 0)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("want ErrInvalidInput, got %v", err)
	}
}

func TestDeleteAndCleanup(t *testing.T) {
	m, s := testManager(t)
	ctx := context.Background()

	sig := ComputeSignature([]string{"a"}, 1, "")
	saved, err := m.Save(ctx, sig, "", json.RawMessage(`{}`), 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Delete(ctx, saved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, saved.ID); !errors.Is(err, common.ErrNotFound) {
		t.Error("prediction still present after delete")
	}
	if err := m.Delete(ctx, uuid.New()); err != nil {
		t.Errorf("delete of unknown id: %v", err)
	}

	// Cleanup removes only expired records. Predictions have no lock
	// concept, so expiry alone decides.
	expired, err := m.Save(ctx, sig, "", json.RawMessage(`{}`), 0)
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	expired.ExpiresAt = &past
	if err := s.Put(ctx, expired); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Save(ctx, sig, "", json.RawMessage(`{}`), 0); err != nil {
		t.Fatal(err)
	}

	removed, err := m.CleanupExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("want 1 removed, got %d", removed)
	}
}
