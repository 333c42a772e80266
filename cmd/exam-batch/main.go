package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"examextractor/constants"
	"examextractor/internal/artifacts"
	"examextractor/internal/common"
	"examextractor/internal/entity"
	"examextractor/internal/export"
	"examextractor/internal/extract"
	"examextractor/internal/extract/openai"
	"examextractor/internal/ingest"
	"examextractor/internal/predictions"
	"examextractor/internal/replay"
	"examextractor/internal/store"
	"examextractor/internal/sweeper"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		dir        = flag.String("dir", "", "directory of scanned papers to process (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		useReplay  = flag.Bool("replay", false, "serve cached extractions instead of calling the provider")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	// If output file not specified, use parent directory with default filename
	if *out == "" {
		parentDir := filepath.Dir(*dir)
		*out = filepath.Join(parentDir, "questions.xlsx")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: loading config: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.Storage.Path, cfg.Storage.BusyTimeout, logger)
	if err != nil {
		printError("Error: opening store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	extractionStore, err := artifacts.NewStore(db, logger)
	if err != nil {
		printError("Error: extraction store: %v\n", err)
		os.Exit(1)
	}
	predictionStore, err := predictions.NewStore(db, logger)
	if err != nil {
		printError("Error: prediction store: %v\n", err)
		os.Exit(1)
	}

	// Reclaim anything expired before doing new work.
	gc := sweeper.New(extractionStore, predictionStore, logger)
	if _, err := gc.Sweep(ctx, time.Now().UTC()); err != nil {
		logger.Warn("startup sweep failed", "error", err)
	}

	client := openai.NewClient(openai.Config{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		PromptVersion: cfg.LLM.PromptVersion,
		Timeout:       cfg.LLM.Timeout,
	}, logger)

	manager := artifacts.NewManager(extractionStore, entity.Provider{
		Name:          "openai",
		Model:         client.Model(),
		PromptVersion: client.PromptVersion(),
	}, cfg.Cache.ExtractionTTL, logger)

	gate := replay.NewGate(manager, *useReplay || cfg.Cache.ReplayEnabled, logger)

	ingestor := ingest.NewFSIngestor(manager, logger)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, true)
	if err != nil {
		printError("Error: ingest: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ingested: scanned=%d matched=%d succeeded=%d deduplicated=%d failed=%d\n",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)

	for _, r := range results {
		if r.Err != "" || r.Deduplicated {
			continue
		}
		id, err := uuid.Parse(r.ArtifactID)
		if err != nil {
			continue
		}
		if err := runExtraction(ctx, manager, gate, client, id, r); err != nil {
			printError("extraction failed for %s: %v\n", r.SourcePath, err)
		}
	}

	xlsxBytes, err := export.NewService(manager, logger).ExportQuestionsXLSX(ctx)
	if err != nil {
		printError("Error: export: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		printError("Error: write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

// runExtraction drives one artifact through the lifecycle: started, then
// completed from replay or a live provider call, or failed with the
// classified error.
func runExtraction(ctx context.Context, manager *artifacts.Manager, gate *replay.Gate, client *openai.Client, id uuid.UUID, r ingest.Result) error {
	if constants.NormalizeExt(r.FileExt) == "pdf" {
		// Rasterization lives upstream; the batch tool only handles images.
		return fmt.Errorf("pdf rasterization not available in batch mode, artifact left pending")
	}

	if _, err := manager.MarkExtractionStarted(ctx, id); err != nil {
		return err
	}

	if questions, ok, err := gate.GetReplayQuestions(ctx, r.HashHex); err == nil && ok {
		_, err := manager.CompleteExtraction(ctx, id, questions, nil)
		return err
	} else if err != nil {
		return err
	}

	content, err := os.ReadFile(r.SourcePath)
	if err != nil {
		return err
	}

	result, err := client.PerformExtraction(ctx, extract.Request{
		Pages: []extract.PageImage{{
			PageNumber: 1,
			MimeType:   ingest.MimeTypeForExt(r.FileExt),
			Data:       content,
		}},
		FilenameHint: filepath.Base(r.SourcePath),
	})
	if err != nil {
		ce := extract.AsClassified(err)
		if _, failErr := manager.FailExtraction(ctx, id, entity.ExtractionError{
			Kind:      string(ce.Kind),
			Message:   ce.Message,
			Retryable: ce.Retryable(),
		}); failErr != nil {
			return failErr
		}
		return err
	}

	_, err = manager.CompleteExtraction(ctx, id, result.Questions, result.PerQuestionConfidence)
	return err
}
