package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the persisted media index. All access goes through it; there is
// no process-wide singleton.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New opens (creating if necessary) the index database at dbPath.
// The parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Debug("Database path: %s", dbPath)

	// WAL lets readers run concurrently with a scan's writes;
	// busy_timeout prevents "database is locked" errors under write contention.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Allow multiple readers alongside the single writer.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Debug("Database initialized at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		size INTEGER NOT NULL DEFAULT 0,
		mod_time INTEGER NOT NULL,
		media_type TEXT NOT NULL,
		codec TEXT,
		width INTEGER,
		height INTEGER,
		bit_rate INTEGER,
		duration REAL,
		frame_rate REAL,
		format TEXT,
		content_hash TEXT,
		status TEXT NOT NULL,
		error_message TEXT,
		scanned_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_media_type ON media_records(media_type);
	CREATE INDEX IF NOT EXISTS idx_records_status ON media_records(status);
	CREATE INDEX IF NOT EXISTS idx_records_content_hash ON media_records(content_hash);
	CREATE INDEX IF NOT EXISTS idx_records_codec ON media_records(codec);
	CREATE INDEX IF NOT EXISTS idx_records_resolution ON media_records(width, height);
	CREATE INDEX IF NOT EXISTS idx_records_mod_time ON media_records(mod_time);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the on-disk location of the index file.
func (d *Database) Path() string {
	return d.dbPath
}

// Upsert inserts or fully overwrites the record for its path. The statement
// is atomic per record: concurrent readers never observe a partial-field
// overwrite, and concurrent upserts for the same path resolve last-write-wins.
func (d *Database) Upsert(ctx context.Context, rec *MediaRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert", start, err) }()

	query := `
	INSERT INTO media_records (
		path, size, mod_time, media_type,
		codec, width, height, bit_rate, duration, frame_rate, format,
		content_hash, status, error_message, scanned_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		size = excluded.size,
		mod_time = excluded.mod_time,
		media_type = excluded.media_type,
		codec = excluded.codec,
		width = excluded.width,
		height = excluded.height,
		bit_rate = excluded.bit_rate,
		duration = excluded.duration,
		frame_rate = excluded.frame_rate,
		format = excluded.format,
		content_hash = excluded.content_hash,
		status = excluded.status,
		error_message = excluded.error_message,
		scanned_at = excluded.scanned_at
	`

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(opCtx, query,
		rec.Path,
		rec.Size,
		rec.ModTime.Unix(),
		rec.MediaType,
		rec.Codec,
		rec.Width,
		rec.Height,
		rec.Bitrate,
		rec.Duration,
		rec.FrameRate,
		rec.Format,
		rec.ContentHash,
		rec.Status,
		rec.ErrorDetail,
		rec.ScannedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Path, err)
	}

	if rows, rowsErr := result.RowsAffected(); rowsErr == nil && rows > 0 {
		metrics.DBRowsAffected.WithLabelValues("upsert").Observe(float64(rows))
	}
	return nil
}

// GetByPath retrieves a single record by path. Returns sql.ErrNoRows when the
// path is not indexed.
func (d *Database) GetByPath(ctx context.Context, path string) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_by_path", start, err) }()

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(opCtx, selectColumns+` FROM media_records WHERE path = ?`, path)

	var rec *MediaRecord
	rec, err = scanRecord(row)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record for a path. Used only when a re-scan confirms the
// underlying file is gone; the store never removes records on its own.
func (d *Database) Delete(ctx context.Context, path string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete", start, err) }()

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(opCtx, `DELETE FROM media_records WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	if rows, rowsErr := result.RowsAffected(); rowsErr == nil && rows > 0 {
		metrics.DBRowsAffected.WithLabelValues("delete").Observe(float64(rows))
	}
	return nil
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
