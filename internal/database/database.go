// Package database manages the SQLite-backed media index: libraries and
// the media records discovered inside them.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all persistence for the media catalog.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the catalog database at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode and busy_timeout prevent "database is locked" errors when
	// scans of different libraries write concurrently. foreign_keys enables
	// the library -> media_records delete cascade.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

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

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS libraries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		root_path TEXT NOT NULL,
		auto_scan INTEGER NOT NULL DEFAULT 0,
		scan_interval TEXT,
		last_scanned_at INTEGER,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS media_records (
		id TEXT PRIMARY KEY,
		library_id TEXT NOT NULL,
		path TEXT NOT NULL,
		relative_path TEXT NOT NULL,
		type TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		file_hash TEXT,
		processed INTEGER NOT NULL DEFAULT 0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		video_codec TEXT,
		audio_codec TEXT,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		title TEXT,
		artist TEXT,
		album TEXT,
		genres TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		UNIQUE(library_id, relative_path),
		FOREIGN KEY (library_id) REFERENCES libraries(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_media_library ON media_records(library_id);
	CREATE INDEX IF NOT EXISTS idx_media_library_type ON media_records(library_id, type);
	CREATE INDEX IF NOT EXISTS idx_media_processed ON media_records(processed);
	`

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database connection is still usable.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
