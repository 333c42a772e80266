// Package artifacts owns the extraction-artifact lifecycle: creation with
// content-hash identity, the pending -> extracting -> complete|error status
// machine, TTL management, pinning, and the cache-hit lookup that saves an
// external extraction call.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"examextractor/constants"
	"examextractor/internal/common"
	"examextractor/internal/entity"
	"examextractor/internal/hashing"
	"examextractor/internal/store"
)

// UploadedFile is the caller-supplied source file to build an artifact from.
type UploadedFile struct {
	Name     string
	MimeType string
	Content  []byte
}

// Manager exposes every mutation an extraction artifact can undergo.
// Artifacts are mutated only through these methods.
type Manager struct {
	store    *store.RecordStore[entity.ExtractionArtifact]
	provider entity.Provider
	ttl      time.Duration
	logger   *slog.Logger
}

func NewManager(s *store.RecordStore[entity.ExtractionArtifact], provider entity.Provider, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = constants.DefaultExtractionTTL
	}
	return &Manager{store: s, provider: provider, ttl: ttl, logger: logger}
}

// CreateArtifactForFile hashes the file content, builds a pending artifact
// with the default TTL and persists it. It does not consult the cache; call
// CheckForCachedExtraction first to avoid spending an external call.
func (m *Manager) CreateArtifactForFile(ctx context.Context, file UploadedFile) (*entity.ExtractionArtifact, error) {
	if len(file.Content) == 0 {
		return nil, common.NewAppError("INPUT_ERROR", "file content is empty", common.ErrInvalidInput)
	}
	if int64(len(file.Content)) > constants.MaxUploadBytes {
		return nil, common.NewAppError("INPUT_ERROR",
			fmt.Sprintf("file exceeds %d bytes", int64(constants.MaxUploadBytes)), common.ErrInvalidInput)
	}

	now := time.Now().UTC()
	expires := now.Add(m.ttl)
	artifact := &entity.ExtractionArtifact{
		ID:            uuid.New(),
		SchemaVersion: constants.SchemaVersion,
		SourceFile: entity.SourceFile{
			Name:        file.Name,
			ContentHash: hashing.HashBytes(file.Content),
			SizeBytes:   int64(len(file.Content)),
			MimeType:    file.MimeType,
			UploadedAt:  now,
		},
		Extraction: entity.Extraction{
			Status:    constants.StatusPending,
			Questions: []entity.Question{},
		},
		Provider:  m.provider,
		CreatedAt: now,
		ExpiresAt: &expires,
	}

	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Info("artifact created",
		"id", artifact.ID, "file", file.Name,
		"hash", hashing.ShortHash(artifact.SourceFile.ContentHash),
		"size", artifact.SourceFile.SizeBytes)
	return artifact, nil
}

// CheckForCachedExtraction is the dedup gate: it hashes the content and
// returns a completed, non-expired artifact with the same hash, or nil when
// there is no usable cache hit. Identity is content-based, never
// filename-based.
func (m *Manager) CheckForCachedExtraction(ctx context.Context, content []byte) (*entity.ExtractionArtifact, error) {
	hash := hashing.HashBytes(content)
	return m.FindCompletedByHash(ctx, hash)
}

// FindCompletedByHash returns the most recent completed, non-expired
// artifact for the given content hash, or nil.
func (m *Manager) FindCompletedByHash(ctx context.Context, hash string) (*entity.ExtractionArtifact, error) {
	matches, err := m.store.FindByIndex(ctx, hash)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var best *entity.ExtractionArtifact
	for _, a := range matches {
		if a.Extraction.Status != constants.StatusComplete || a.Expired(now) {
			continue
		}
		if best == nil || a.CreatedAt.After(best.CreatedAt) {
			best = a
		}
	}
	return best, nil
}

// MarkExtractionStarted moves a pending artifact to extracting and records
// the start time.
func (m *Manager) MarkExtractionStarted(ctx context.Context, id uuid.UUID) (*entity.ExtractionArtifact, error) {
	artifact, err := m.store.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if artifact.Extraction.Status != constants.StatusPending {
		return nil, m.transitionError(artifact, constants.StatusExtracting)
	}
	now := time.Now().UTC()
	artifact.Extraction.Status = constants.StatusExtracting
	artifact.Extraction.StartedAt = &now
	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Info("extraction started", "id", id)
	return artifact, nil
}

// CompleteExtraction records the terminal success: final questions, the
// per-question confidence map, the completion time and derived duration,
// and the overall confidence (mean of per-question scores, with the default
// substituted for any question lacking one). Rejected unless the artifact is
// currently extracting.
func (m *Manager) CompleteExtraction(ctx context.Context, id uuid.UUID, questions []entity.Question, perQuestion map[string]float64) (*entity.ExtractionArtifact, error) {
	artifact, err := m.store.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if artifact.Extraction.Status != constants.StatusExtracting {
		return nil, m.transitionError(artifact, constants.StatusComplete)
	}

	now := time.Now().UTC()
	if questions == nil {
		questions = []entity.Question{}
	}
	artifact.Extraction.Status = constants.StatusComplete
	artifact.Extraction.CompletedAt = &now
	if artifact.Extraction.StartedAt != nil {
		artifact.Extraction.DurationMs = now.Sub(*artifact.Extraction.StartedAt).Milliseconds()
	}
	artifact.Extraction.Questions = questions
	artifact.Extraction.Confidence = computeConfidence(questions, perQuestion)
	artifact.Extraction.Error = nil

	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Info("extraction complete",
		"id", id, "questions", len(questions),
		"overall_confidence", artifact.Extraction.Confidence.Overall,
		"duration_ms", artifact.Extraction.DurationMs)
	return artifact, nil
}

// FailExtraction records the terminal failure descriptor reported by the
// caller. Rejected unless the artifact is currently extracting.
func (m *Manager) FailExtraction(ctx context.Context, id uuid.UUID, extractionErr entity.ExtractionError) (*entity.ExtractionArtifact, error) {
	artifact, err := m.store.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if artifact.Extraction.Status != constants.StatusExtracting {
		return nil, m.transitionError(artifact, constants.StatusError)
	}

	now := time.Now().UTC()
	artifact.Extraction.Status = constants.StatusError
	artifact.Extraction.CompletedAt = &now
	if artifact.Extraction.StartedAt != nil {
		artifact.Extraction.DurationMs = now.Sub(*artifact.Extraction.StartedAt).Milliseconds()
	}
	artifact.Extraction.Error = &extractionErr

	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Warn("extraction failed",
		"id", id, "kind", extractionErr.Kind, "retryable", extractionErr.Retryable,
		"message", extractionErr.Message)
	return artifact, nil
}

// LockArtifact pins the artifact: it clears the expiry outright, so locked
// records are exempt from GC by construction rather than by a conditional
// check in the sweeper.
func (m *Manager) LockArtifact(ctx context.Context, id uuid.UUID) (*entity.ExtractionArtifact, error) {
	artifact, err := m.store.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	artifact.Locked = true
	artifact.ExpiresAt = nil
	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Info("artifact locked", "id", id)
	return artifact, nil
}

// UnlockArtifact clears the pin. The expiry stays nil; only
// ExtendArtifactTTL sets a new one.
func (m *Manager) UnlockArtifact(ctx context.Context, id uuid.UUID) (*entity.ExtractionArtifact, error) {
	artifact, err := m.store.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	artifact.Locked = false
	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Info("artifact unlocked", "id", id)
	return artifact, nil
}

// ExtendArtifactTTL sets expiry to now + days (default 7), regardless of
// lock state. Unlock first if the extension is supposed to matter.
func (m *Manager) ExtendArtifactTTL(ctx context.Context, id uuid.UUID, days int) (*entity.ExtractionArtifact, error) {
	if days <= 0 {
		days = 7
	}
	artifact, err := m.store.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	expires := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
	artifact.ExpiresAt = &expires
	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Info("artifact ttl extended", "id", id, "days", days)
	return artifact, nil
}

// DeleteArtifact removes the artifact. A locked artifact is only removed
// with force; otherwise the store is left untouched and ErrLockedConflict is
// returned for the caller to report.
func (m *Manager) DeleteArtifact(ctx context.Context, id uuid.UUID, force bool) error {
	artifact, err := m.store.Get(ctx, id.String())
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if artifact.Locked && !force {
		return common.ErrLockedConflict
	}
	if err := m.store.Delete(ctx, id.String()); err != nil {
		return err
	}
	m.logger.Info("artifact deleted", "id", id, "forced", force)
	return nil
}

// Get returns the artifact with the given id, or common.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionArtifact, error) {
	return m.store.Get(ctx, id.String())
}

// ListArtifacts returns artifacts, expired ones filtered out unless asked
// for.
func (m *Manager) ListArtifacts(ctx context.Context, includeExpired bool) ([]*entity.ExtractionArtifact, error) {
	return m.store.ListAll(ctx, includeExpired)
}

// GetAllQuestionsFromArtifacts flattens the questions of every completed,
// non-expired artifact. Read-only; derives nothing persistent.
func (m *Manager) GetAllQuestionsFromArtifacts(ctx context.Context) ([]entity.Question, error) {
	all, err := m.store.ListAll(ctx, false)
	if err != nil {
		return nil, err
	}
	var questions []entity.Question
	for _, a := range all {
		if a.Extraction.Status != constants.StatusComplete {
			continue
		}
		questions = append(questions, a.Extraction.Questions...)
	}
	return questions, nil
}

func (m *Manager) transitionError(artifact *entity.ExtractionArtifact, target constants.ExtractionStatus) error {
	return common.NewAppError("INVALID_TRANSITION",
		fmt.Sprintf("artifact %s is %s, cannot move to %s", artifact.ID, artifact.Extraction.Status, target),
		common.ErrInvalidTransition)
}

func computeConfidence(questions []entity.Question, perQuestion map[string]float64) *entity.ExtractionConfidence {
	scores := make(map[string]float64, len(questions))
	sum := 0.0
	for _, q := range questions {
		score, ok := perQuestion[q.ID]
		if !ok {
			score = constants.DefaultQuestionConfidence
		}
		scores[q.ID] = score
		sum += score
	}
	overall := 0.0
	if len(questions) > 0 {
		overall = sum / float64(len(questions))
	}
	return &entity.ExtractionConfidence{Overall: overall, PerQuestion: scores}
}
