// Package predictions caches prediction runs keyed by an input signature
// over a set of extraction artifacts. Predictions are cheap to regenerate
// relative to extraction, so there is no lock concept here.
package predictions

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"examextractor/constants"
	"examextractor/internal/common"
	"examextractor/internal/entity"
	"examextractor/internal/store"
)

// Collection is the table name for prediction artifacts.
const Collection = "prediction_artifacts"

// NewStore wires the generic record store for prediction artifacts, indexed
// by the input-signature hash.
func NewStore(db *sql.DB, logger *slog.Logger) (*store.RecordStore[entity.PredictionArtifact], error) {
	return store.NewRecordStore(db, store.Options[entity.PredictionArtifact]{
		Collection: Collection,
		ID:         func(p *entity.PredictionArtifact) string { return p.ID.String() },
		IndexKey:   func(p *entity.PredictionArtifact) string { return p.InputSignature.Hash },
		ExpiresAt:  func(p *entity.PredictionArtifact) *time.Time { return p.ExpiresAt },
	}, logger)
}

// Manager owns prediction-artifact caching.
type Manager struct {
	store  *store.RecordStore[entity.PredictionArtifact]
	ttl    time.Duration
	logger *slog.Logger
}

func NewManager(s *store.RecordStore[entity.PredictionArtifact], ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = constants.DefaultPredictionTTL
	}
	return &Manager{store: s, ttl: ttl, logger: logger}
}

// Save persists a prediction result under the given signature with the
// default TTL and returns the stored artifact.
func (m *Manager) Save(ctx context.Context, sig entity.InputSignature, syllabusText string, result json.RawMessage, durationMs int64) (*entity.PredictionArtifact, error) {
	if sig.Hash == "" {
		return nil, common.NewAppError("INPUT_ERROR", "input signature hash is empty", common.ErrInvalidInput)
	}
	now := time.Now().UTC()
	expires := now.Add(m.ttl)
	artifact := &entity.PredictionArtifact{
		ID:             uuid.New(),
		SchemaVersion:  constants.SchemaVersion,
		InputSignature: sig,
		SyllabusText:   syllabusText,
		Result:         result,
		DurationMs:     durationMs,
		CreatedAt:      now,
		ExpiresAt:      &expires,
	}
	if err := m.store.Put(ctx, artifact); err != nil {
		return nil, err
	}
	m.logger.Info("prediction cached",
		"id", artifact.ID, "sources", len(sig.ArtifactIDs), "questions", sig.QuestionCount)
	return artifact, nil
}

// FindByHash returns the most recent non-expired prediction for the given
// signature hash, or nil when there is no cache hit.
func (m *Manager) FindByHash(ctx context.Context, hash string) (*entity.PredictionArtifact, error) {
	matches, err := m.store.FindByIndex(ctx, hash)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var best *entity.PredictionArtifact
	for _, p := range matches {
		if p.Expired(now) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	return best, nil
}

// Get returns the prediction with the given id, or common.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*entity.PredictionArtifact, error) {
	return m.store.Get(ctx, id.String())
}

// Delete removes a prediction. Deleting a nonexistent id is not an error.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.store.Delete(ctx, id.String())
}

// List returns predictions, expired ones filtered out unless asked for.
func (m *Manager) List(ctx context.Context, includeExpired bool) ([]*entity.PredictionArtifact, error) {
	return m.store.ListAll(ctx, includeExpired)
}

// CleanupExpired sweeps expired predictions and returns how many were
// removed.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	return m.store.SweepExpired(ctx, time.Now().UTC())
}
