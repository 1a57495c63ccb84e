package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"hevc-shrink/internal/logging"
	"hevc-shrink/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Outcome labels stored in the status column.
const (
	StatusConverted     = "converted"
	StatusAlreadyTarget = "already_target"
	StatusSkipped       = "skipped"
	StatusFailed        = "failed"
)

// ReasonNoImprovement marks a failed conversion whose output was not smaller.
const ReasonNoImprovement = "no_improvement"

// Entry is one journal row.
type Entry struct {
	ID     int64
	Path   string
	Codec  string
	Status string
	// Reason is the skip reason or failure kind, empty for successes.
	Reason        string
	Error         string
	InputSize     int64
	OutputSize    int64
	ModTime       time.Time
	TargetBitrate int64
	Encoder       string
	FinalPath     string
	Duration      time.Duration
	RecordedAt    time.Time
}

// Saved returns the bytes saved by a converted entry.
func (e Entry) Saved() int64 {
	if e.Status != StatusConverted || e.OutputSize <= 0 {
		return 0
	}
	return e.InputSize - e.OutputSize
}

// DB is the history journal.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the journal at path. The parent directory is created
// if needed.
func Open(ctx context.Context, path string) (*DB, error) {
	logging.Info("History database path: %s", path)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	// Writes are serialised by mu; SQLite handles one writer anyway.
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	h := &DB{db: db, path: path}
	if err := h.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return h, nil
}

func (h *DB) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		codec TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		input_size INTEGER NOT NULL DEFAULT 0,
		output_size INTEGER NOT NULL DEFAULT 0,
		mod_time INTEGER NOT NULL DEFAULT 0,
		target_bitrate INTEGER NOT NULL DEFAULT 0,
		encoder TEXT NOT NULL DEFAULT '',
		final_path TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		recorded_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_path ON conversions(path);
	CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions(status);
	CREATE INDEX IF NOT EXISTS idx_conversions_recorded ON conversions(recorded_at);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database file path.
func (h *DB) Path() string { return h.path }

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

// Record appends an entry. RecordedAt defaults to now.
func (h *DB) Record(ctx context.Context, e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := h.db.ExecContext(ctx, `
	INSERT INTO conversions (path, codec, status, reason, error, input_size, output_size,
		mod_time, target_bitrate, encoder, final_path, duration_ms, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Path, e.Codec, e.Status, e.Reason, e.Error, e.InputSize, e.OutputSize,
		e.ModTime.Unix(), e.TargetBitrate, e.Encoder, e.FinalPath,
		e.Duration.Milliseconds(), e.RecordedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.Path, err)
	}
	return nil
}

// KnownNoGain reports whether the file at path, with this exact size and
// modification time, has already been encoded without a size improvement.
func (h *DB) KnownNoGain(ctx context.Context, path string, size int64, modTime time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var found int
	err := h.db.QueryRowContext(ctx, `
	SELECT 1 FROM conversions
	WHERE path = ? AND input_size = ? AND mod_time = ? AND status = ? AND reason = ?
	LIMIT 1
	`, path, size, modTime.Unix(), StatusFailed, ReasonNoImprovement).Scan(&found)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query history for %s: %w", path, err)
	}
	return true, nil
}

// Recent returns the newest entries, newest first.
func (h *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := h.db.QueryContext(ctx, `
	SELECT id, path, codec, status, reason, error, input_size, output_size, mod_time,
		target_bitrate, encoder, final_path, duration_ms, recorded_at
	FROM conversions
	ORDER BY recorded_at DESC, id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent conversions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var modTime, durationMs, recordedAt int64
		if err := rows.Scan(&e.ID, &e.Path, &e.Codec, &e.Status, &e.Reason, &e.Error,
			&e.InputSize, &e.OutputSize, &modTime, &e.TargetBitrate, &e.Encoder,
			&e.FinalPath, &durationMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		e.ModTime = time.Unix(modTime, 0)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.RecordedAt = time.Unix(recordedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Totals summarises the journal.
type Totals struct {
	ByStatus   map[string]int
	InputBytes int64
	BytesSaved int64
}

// Totals aggregates all entries.
func (h *DB) Totals(ctx context.Context) (Totals, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	t := Totals{ByStatus: make(map[string]int)}

	rows, err := h.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM conversions GROUP BY status`)
	if err != nil {
		return t, fmt.Errorf("failed to count conversions: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			_ = rows.Close()
			return t, fmt.Errorf("failed to scan status count: %w", err)
		}
		t.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return t, fmt.Errorf("failed to read status counts: %w", err)
	}
	if err := rows.Close(); err != nil {
		return t, err
	}

	err = h.db.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(input_size), 0), COALESCE(SUM(input_size - output_size), 0)
	FROM conversions WHERE status = ? AND output_size > 0
	`, StatusConverted).Scan(&t.InputBytes, &t.BytesSaved)
	if err != nil {
		return t, fmt.Errorf("failed to sum conversion sizes: %w", err)
	}
	return t, nil
}

// GetStats implements metrics.StatsProvider.
func (h *DB) GetStats() metrics.Stats {
	t, err := h.Totals(context.Background())
	if err != nil {
		logging.Warn("Failed to read history totals: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{ByStatus: t.ByStatus, BytesSaved: t.BytesSaved}
}
