package store

import (
	"context"
	"database/sql"

	"vidvault/models"
)

func (s *Store) CreateAsset(ctx context.Context, a *models.ContentAsset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_assets (id, title, file_path, server_id, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, a.FilePath, a.ServerID, a.DurationSeconds, formatTime(a.CreatedAt))
	return err
}

func (s *Store) GetAsset(ctx context.Context, id string) (*models.ContentAsset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, file_path, server_id, duration_seconds, created_at
		FROM content_assets WHERE id = ?
	`, id)

	var a models.ContentAsset
	var createdAt string
	err := row.Scan(&a.ID, &a.Title, &a.FilePath, &a.ServerID, &a.DurationSeconds, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) UpdateAssetDuration(ctx context.Context, id string, seconds float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_assets SET duration_seconds = ? WHERE id = ?`, seconds, id)
	return err
}

// DeleteAsset removes an asset and its renditions in dependency order:
// children first, then the parent row. Processing jobs are kept as the
// audit trail and backups are retained as historical records.
func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM video_qualities WHERE asset_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM content_assets WHERE id = ?`, id)
	return err
}
