// Package sweeper is the garbage collector over both artifact stores. It
// runs once at process start and, when configured with an interval, on a
// ticker afterward. Locked extraction artifacts carry no expiry, so they
// are never candidates.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"examextractor/internal/entity"
	"examextractor/internal/store"
)

// Result summarizes one sweep pass.
type Result struct {
	ExtractionsRemoved int
	PredictionsRemoved int
}

// Sweeper removes expired records from the extraction and prediction
// collections.
type Sweeper struct {
	extractions *store.RecordStore[entity.ExtractionArtifact]
	predictions *store.RecordStore[entity.PredictionArtifact]
	logger      *slog.Logger
}

func New(extractions *store.RecordStore[entity.ExtractionArtifact], predictions *store.RecordStore[entity.PredictionArtifact], logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{extractions: extractions, predictions: predictions, logger: logger}
}

// Sweep removes every record whose expiry has passed at now. A failure in
// one collection does not stop the other; the result reflects successful
// removals only.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Result, error) {
	var res Result
	var firstErr error

	n, err := s.extractions.SweepExpired(ctx, now)
	res.ExtractionsRemoved = n
	if err != nil {
		s.logger.Error("extraction sweep failed", "error", err)
		firstErr = err
	}

	n, err = s.predictions.SweepExpired(ctx, now)
	res.PredictionsRemoved = n
	if err != nil {
		s.logger.Error("prediction sweep failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return res, firstErr
}

// Run sweeps immediately and then every interval until ctx is done. An
// interval of zero means startup-only.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
		s.logger.Error("startup sweep failed", "error", err)
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("periodic sweep failed", "error", err)
			}
		}
	}
}
