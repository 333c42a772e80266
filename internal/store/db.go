// Package store implements the persistent record engine behind both artifact
// caches: one SQLite database, one table per collection, a JSON payload
// column, and a single secondary index populated by a typed key-extraction
// function.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"examextractor/internal/common"
)

// Open opens (creating if needed) the SQLite database at dbPath. WAL mode
// and a busy timeout keep the single-writer model from surfacing spurious
// lock errors. SQLite serializes writes within the file, which is all the
// concurrency discipline the record stores require.
func Open(dbPath string, busyTimeout time.Duration, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, common.NewAppError("STORAGE_UNAVAILABLE",
			fmt.Sprintf("create database directory %s", dir), common.ErrStorageUnavailable)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", dbPath, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.NewAppError("STORAGE_UNAVAILABLE", "open database", common.ErrStorageUnavailable)
	}

	// Single connection; SQLite has one writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logger.Error("database ping failed", "path", dbPath, "error", err)
		return nil, common.NewAppError("STORAGE_UNAVAILABLE", "ping database", common.ErrStorageUnavailable)
	}

	logger.Info("database opened", "path", dbPath)
	return db, nil
}
