// Package replay substitutes previously cached extraction results for live
// external calls, keyed by content hash. It makes the non-deterministic
// extraction step testable and offline-capable.
package replay

import (
	"context"
	"log/slog"
	"sync/atomic"

	"examextractor/internal/artifacts"
	"examextractor/internal/entity"
)

// Gate answers replay queries against the extraction cache. It is
// constructed per instance rather than held as package state, so parallel
// tests get independent gates.
type Gate struct {
	manager *artifacts.Manager
	enabled atomic.Bool
	logger  *slog.Logger
}

func NewGate(manager *artifacts.Manager, enabled bool, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{manager: manager, logger: logger}
	g.enabled.Store(enabled)
	return g
}

// SetEnabled toggles the gate. Last write wins; this is a user-toggled
// development switch, not a correctness-critical value.
func (g *Gate) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
	g.logger.Info("replay gate toggled", "enabled", enabled)
}

// Enabled reports the current gate state.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// GetReplayQuestions returns the questions of a completed extraction
// artifact with the given content hash. The second return is false when the
// gate is disabled or no usable artifact exists, and the caller must fall
// through to the live path.
func (g *Gate) GetReplayQuestions(ctx context.Context, contentHash string) ([]entity.Question, bool, error) {
	if !g.enabled.Load() {
		return nil, false, nil
	}
	artifact, err := g.manager.FindCompletedByHash(ctx, contentHash)
	if err != nil {
		return nil, false, err
	}
	if artifact == nil {
		return nil, false, nil
	}
	g.logger.Info("replaying cached extraction", "artifact_id", artifact.ID, "questions", len(artifact.Extraction.Questions))
	return artifact.Extraction.Questions, true, nil
}
