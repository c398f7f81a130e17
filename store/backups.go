package store

import (
	"context"
	"database/sql"
	"time"

	"vidvault/models"
)

const backupCols = `id, rendition_id, server_id, path, size_bytes, checksum, verified, verify_note, creation_type, created_at, verified_at`

func (s *Store) CreateBackupRecord(ctx context.Context, b *models.BackupRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_backups (id, rendition_id, server_id, path, size_bytes, checksum, verified, verify_note, creation_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.RenditionID, b.ServerID, b.Path, b.SizeBytes, b.Checksum,
		boolToInt(b.Verified), b.VerifyNote, b.CreationType, formatTime(b.CreatedAt))
	return err
}

func (s *Store) GetBackupRecord(ctx context.Context, id string) (*models.BackupRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+backupCols+` FROM video_backups WHERE id = ?`, id)
	b, err := scanBackupRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func scanBackupRow(scan func(...interface{}) error) (*models.BackupRecord, error) {
	var b models.BackupRecord
	var verified int
	var createdAt string
	var verifiedAt sql.NullString
	err := scan(&b.ID, &b.RenditionID, &b.ServerID, &b.Path, &b.SizeBytes,
		&b.Checksum, &verified, &b.VerifyNote, &b.CreationType, &createdAt, &verifiedAt)
	if err != nil {
		return nil, err
	}
	b.Verified = verified == 1
	b.CreatedAt = parseTime(createdAt)
	b.VerifiedAt = parseNullTime(verifiedAt)
	return &b, nil
}

func (s *Store) collectBackups(rows *sql.Rows) ([]*models.BackupRecord, error) {
	defer rows.Close()
	var out []*models.BackupRecord
	for rows.Next() {
		b, err := scanBackupRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) ListBackupsByRendition(ctx context.Context, renditionID string) ([]*models.BackupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+backupCols+` FROM video_backups WHERE rendition_id = ? ORDER BY created_at`,
		renditionID)
	if err != nil {
		return nil, err
	}
	return s.collectBackups(rows)
}

// ListBackupsOlderThan returns backups created strictly before the cutoff.
func (s *Store) ListBackupsOlderThan(ctx context.Context, cutoff time.Time) ([]*models.BackupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+backupCols+` FROM video_backups WHERE created_at < ? ORDER BY created_at`,
		formatTime(cutoff))
	if err != nil {
		return nil, err
	}
	return s.collectBackups(rows)
}

// ListUnverifiedBackupsOlderThan returns unverified backups created strictly
// before the cutoff. The engine sweeps these to re-arm verification after a
// restart, since creation-time timers do not survive the process.
func (s *Store) ListUnverifiedBackupsOlderThan(ctx context.Context, cutoff time.Time) ([]*models.BackupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+backupCols+` FROM video_backups
		 WHERE verified = 0 AND created_at < ? ORDER BY created_at`,
		formatTime(cutoff))
	if err != nil {
		return nil, err
	}
	return s.collectBackups(rows)
}

// CountVerifiedBackups returns how many verified replicas a rendition has.
func (s *Store) CountVerifiedBackups(ctx context.Context, renditionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM video_backups WHERE rendition_id = ? AND verified = 1`,
		renditionID).Scan(&n)
	return n, err
}

// CountVerifiedBackupsSince counts a rendition's verified backups created at or
// after the cutoff, excluding one record. Used by the retention floor check.
func (s *Store) CountVerifiedBackupsSince(ctx context.Context, renditionID string, cutoff time.Time, excludeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM video_backups
		 WHERE rendition_id = ? AND verified = 1 AND created_at >= ? AND id != ?`,
		renditionID, formatTime(cutoff), excludeID).Scan(&n)
	return n, err
}

// ServersHoldingBackup returns the set of server ids that already hold a
// backup of the rendition.
func (s *Store) ServersHoldingBackup(ctx context.Context, renditionID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT server_id FROM video_backups WHERE rendition_id = ?`, renditionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	held := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		held[id] = true
	}
	return held, rows.Err()
}

// SetBackupVerification records a verification outcome. A passing check also
// stamps verified_at; a failing one records the reason.
func (s *Store) SetBackupVerification(ctx context.Context, id string, verified bool, note string) error {
	if verified {
		_, err := s.db.ExecContext(ctx,
			`UPDATE video_backups SET verified = 1, verify_note = '', verified_at = ? WHERE id = ?`,
			nowString(), id)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE video_backups SET verified = 0, verify_note = ?, verified_at = NULL WHERE id = ?`,
		note, id)
	return err
}

func (s *Store) DeleteBackupRecord(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM video_backups WHERE id = ?`, id)
	return err
}

// DeleteRenditionBackups is the explicit operator cleanup for orphaned
// backups; nothing calls it automatically.
func (s *Store) DeleteRenditionBackups(ctx context.Context, renditionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM video_backups WHERE rendition_id = ?`, renditionID)
	return err
}

// BackupStats aggregates replica counts and sizes, scoped to one rendition
// when renditionID is non-empty.
type BackupStats struct {
	Total           int        `json:"total"`
	Verified        int        `json:"verified"`
	Unverified      int        `json:"unverified"` // awaiting their first check
	Failed          int        `json:"failed"`     // failed their last verification
	TotalBytes      int64      `json:"total_bytes"`
	LatestBackup    *time.Time `json:"latest_backup,omitempty"`
	RedundancyLevel float64    `json:"redundancy_level"`
}

func (s *Store) GetBackupStats(ctx context.Context, renditionID string) (*BackupStats, error) {
	query := `SELECT COUNT(*),
		COALESCE(SUM(verified), 0),
		COALESCE(SUM(CASE WHEN verified = 0 AND verify_note != '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(size_bytes), 0),
		COALESCE(MAX(created_at), ''),
		COUNT(DISTINCT rendition_id)
		FROM video_backups`
	args := []interface{}{}
	if renditionID != "" {
		query += ` WHERE rendition_id = ?`
		args = append(args, renditionID)
	}

	var stats BackupStats
	var latest string
	var distinct int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Total, &stats.Verified, &stats.Failed, &stats.TotalBytes, &latest, &distinct)
	if err != nil {
		return nil, err
	}
	stats.Unverified = stats.Total - stats.Verified - stats.Failed
	if latest != "" {
		t := parseTime(latest)
		stats.LatestBackup = &t
	}
	if distinct > 0 {
		stats.RedundancyLevel = float64(stats.Total) / float64(distinct)
	}
	return &stats, nil
}
