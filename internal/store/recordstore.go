package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"examextractor/internal/common"
)

// Options describes one collection: its table name and the typed accessors
// the engine needs to persist a record. IndexKey feeds the one secondary
// index each collection gets.
type Options[T any] struct {
	Collection string
	ID         func(*T) string
	IndexKey   func(*T) string
	ExpiresAt  func(*T) *time.Time
}

// RecordStore is a durable key-value store for records of type T with one
// secondary index. A put is atomic with respect to any concurrent read on
// the same collection.
type RecordStore[T any] struct {
	db     *sql.DB
	opts   Options[T]
	logger *slog.Logger
}

// NewRecordStore creates the collection's table and indexes if they do not
// exist yet and returns the store.
func NewRecordStore[T any](db *sql.DB, opts Options[T], logger *slog.Logger) (*RecordStore[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RecordStore[T]{db: db, opts: opts, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, common.NewAppError("STORAGE_UNAVAILABLE",
			fmt.Sprintf("migrate collection %s", opts.Collection), common.ErrStorageUnavailable)
	}
	return s, nil
}

func (s *RecordStore[T]) migrate() error {
	c := s.opts.Collection
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id            TEXT PRIMARY KEY,
		index_key     TEXT NOT NULL,
		expires_at_ms INTEGER,
		payload       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_index_key ON %[1]s(index_key);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_expiry ON %[1]s(expires_at_ms);
	`, c)
	_, err := s.db.Exec(schema)
	return err
}

func (s *RecordStore[T]) expiryMillis(rec *T) any {
	if exp := s.opts.ExpiresAt(rec); exp != nil {
		return exp.UnixMilli()
	}
	return nil
}

// Put upserts the record by id. The write is a single statement, so it is
// either fully visible to subsequent reads or not at all.
func (s *RecordStore[T]) Put(ctx context.Context, rec *T) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return common.NewAppError("SERIALIZATION_ERROR",
			fmt.Sprintf("marshal record for %s", s.opts.Collection), common.ErrSerialization)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s (id, index_key, expires_at_ms, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			index_key = excluded.index_key,
			expires_at_ms = excluded.expires_at_ms,
			payload = excluded.payload`, s.opts.Collection),
		s.opts.ID(rec), s.opts.IndexKey(rec), s.expiryMillis(rec), string(payload),
	)
	if err != nil {
		s.logger.Error("put failed", "collection", s.opts.Collection, "id", s.opts.ID(rec), "error", err)
		return common.WrapError(err, "put record")
	}
	return nil
}

// Get returns the record with the given id, or common.ErrNotFound.
func (s *RecordStore[T]) Get(ctx context.Context, id string) (*T, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE id = ?`, s.opts.Collection), id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get record")
	}
	rec := new(T)
	if err := json.Unmarshal([]byte(payload), rec); err != nil {
		s.logger.Error("corrupt record", "collection", s.opts.Collection, "id", id, "error", err)
		return nil, common.NewAppError("SERIALIZATION_ERROR",
			fmt.Sprintf("unmarshal record %s", id), common.ErrSerialization)
	}
	return rec, nil
}

// FindByIndex returns all records whose indexed field equals key. Corrupt
// rows are skipped and logged; they never abort the scan.
func (s *RecordStore[T]) FindByIndex(ctx context.Context, key string) ([]*T, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, payload FROM %s WHERE index_key = ?`, s.opts.Collection), key)
	if err != nil {
		return nil, common.WrapError(err, "find by index")
	}
	defer rows.Close()
	return s.collect(rows)
}

// ListAll returns every record in the collection. By default records whose
// expiry has passed are filtered out; this is a read-side filter only and
// deletes nothing.
func (s *RecordStore[T]) ListAll(ctx context.Context, includeExpired bool) ([]*T, error) {
	q := fmt.Sprintf(`SELECT id, payload FROM %s`, s.opts.Collection)
	args := []any{}
	if !includeExpired {
		q += ` WHERE expires_at_ms IS NULL OR expires_at_ms >= ?`
		args = append(args, time.Now().UnixMilli())
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, common.WrapError(err, "list records")
	}
	defer rows.Close()
	return s.collect(rows)
}

func (s *RecordStore[T]) collect(rows *sql.Rows) ([]*T, error) {
	var out []*T
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, common.WrapError(err, "scan row")
		}
		rec := new(T)
		if err := json.Unmarshal([]byte(payload), rec); err != nil {
			s.logger.Warn("skipping corrupt record", "collection", s.opts.Collection, "id", id, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete physically removes the record. Deleting a nonexistent id is not an
// error.
func (s *RecordStore[T]) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.opts.Collection), id)
	if err != nil {
		s.logger.Error("delete failed", "collection", s.opts.Collection, "id", id, "error", err)
		return common.WrapError(err, "delete record")
	}
	return nil
}

// SweepExpired physically deletes every record with a non-nil expiry before
// now and returns how many were removed. A failed per-record delete is
// logged and skipped; the sweep continues and the count reflects successful
// deletions only.
func (s *RecordStore[T]) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE expires_at_ms IS NOT NULL AND expires_at_ms < ?`, s.opts.Collection),
		now.UnixMilli())
	if err != nil {
		return 0, common.WrapError(err, "query expired records")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, common.WrapError(err, "scan expired id")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, common.WrapError(err, "iterate expired ids")
	}

	removed := 0
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.opts.Collection), id); err != nil {
			s.logger.Warn("sweep delete failed", "collection", s.opts.Collection, "id", id, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("swept expired records", "collection", s.opts.Collection, "removed", removed)
	}
	return removed, nil
}

// Count returns the number of records currently in the collection, expired
// or not.
func (s *RecordStore[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.opts.Collection)).Scan(&n)
	if err != nil {
		return 0, common.WrapError(err, "count records")
	}
	return n, nil
}
