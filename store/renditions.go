package store

import (
	"context"
	"database/sql"

	"vidvault/models"
)

const renditionCols = `id, asset_id, quality, file_path, server_id, size_bytes, bitrate, codec, ready, created_at`

func (s *Store) CreateRendition(ctx context.Context, r *models.QualityRendition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_qualities (`+renditionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.AssetID, r.Quality, r.FilePath, r.ServerID, r.SizeBytes, r.Bitrate,
		r.Codec, boolToInt(r.Ready), formatTime(r.CreatedAt))
	return err
}

func (s *Store) GetRendition(ctx context.Context, id string) (*models.QualityRendition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+renditionCols+` FROM video_qualities WHERE id = ?`, id)
	return scanRendition(row)
}

func scanRendition(row *sql.Row) (*models.QualityRendition, error) {
	var r models.QualityRendition
	var ready int
	var createdAt string
	err := row.Scan(&r.ID, &r.AssetID, &r.Quality, &r.FilePath, &r.ServerID,
		&r.SizeBytes, &r.Bitrate, &r.Codec, &ready, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Ready = ready == 1
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// ListReadyRenditions returns ready renditions, optionally filtered to one
// quality tier. An empty filter matches everything.
func (s *Store) ListReadyRenditions(ctx context.Context, qualityFilter string) ([]*models.QualityRendition, error) {
	query := `SELECT ` + renditionCols + ` FROM video_qualities WHERE ready = 1`
	args := []interface{}{}
	if qualityFilter != "" {
		query += ` AND quality = ?`
		args = append(args, qualityFilter)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.QualityRendition
	for rows.Next() {
		var r models.QualityRendition
		var ready int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.AssetID, &r.Quality, &r.FilePath, &r.ServerID,
			&r.SizeBytes, &r.Bitrate, &r.Codec, &ready, &createdAt); err != nil {
			return nil, err
		}
		r.Ready = ready == 1
		r.CreatedAt = parseTime(createdAt)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// UpdateRenditionLocation repoints a rendition at a restored copy.
func (s *Store) UpdateRenditionLocation(ctx context.Context, id, serverID, filePath string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE video_qualities SET server_id = ?, file_path = ? WHERE id = ?`,
		serverID, filePath, id)
	return err
}
