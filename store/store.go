// Package store is the persistence boundary: a sqlite-backed relational
// store covering assets, renditions, processing jobs, backups, policies,
// storage servers and the activity log.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"vidvault/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS content_assets (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	file_path TEXT NOT NULL,
	server_id TEXT NOT NULL,
	duration_seconds REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS video_qualities (
	id TEXT PRIMARY KEY,
	asset_id TEXT NOT NULL,
	quality TEXT NOT NULL,
	file_path TEXT NOT NULL,
	server_id TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	bitrate INTEGER NOT NULL DEFAULT 0,
	codec TEXT NOT NULL DEFAULT '',
	ready INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_qualities_asset ON video_qualities(asset_id);

CREATE TABLE IF NOT EXISTS video_processing_jobs (
	id TEXT PRIMARY KEY,
	asset_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	quality TEXT NOT NULL DEFAULT '',
	server_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON video_processing_jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_asset ON video_processing_jobs(asset_id);

CREATE TABLE IF NOT EXISTS video_backups (
	id TEXT PRIMARY KEY,
	rendition_id TEXT NOT NULL,
	server_id TEXT NOT NULL,
	path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	checksum TEXT NOT NULL DEFAULT '',
	verified INTEGER NOT NULL DEFAULT 0,
	verify_note TEXT NOT NULL DEFAULT '',
	creation_type TEXT NOT NULL DEFAULT 'auto',
	created_at TEXT NOT NULL,
	verified_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_backups_rendition ON video_backups(rendition_id);

CREATE TABLE IF NOT EXISTS backup_policies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	frequency_hours INTEGER NOT NULL DEFAULT 24,
	retention_days INTEGER NOT NULL DEFAULT 90,
	min_copies INTEGER NOT NULL DEFAULT 2,
	server_ids TEXT NOT NULL DEFAULT '[]',
	quality_filter TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS internal_servers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'local',
	storage_root TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	capacity_bytes INTEGER NOT NULL DEFAULT 0,
	used_bytes INTEGER NOT NULL DEFAULT 0,
	access TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS video_activity_log (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	target_id TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// MarkInterruptedJobs fails any job left in 'processing' by an earlier run.
// Called once at startup, before the worker loop starts.
func (s *Store) MarkInterruptedJobs(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE video_processing_jobs
		 SET status = 'failed', error_message = 'interrupted by restart', completed_at = ?
		 WHERE status = 'processing'`, nowString())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Warnf("marked %d interrupted jobs as failed", n)
	}
	return nil
}
