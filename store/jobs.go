package store

import (
	"context"
	"database/sql"

	"vidvault/models"
)

const jobCols = `id, asset_id, kind, quality, server_id, status, progress, error_message, created_at, started_at, completed_at`

func (s *Store) CreateJob(ctx context.Context, j *models.ProcessingJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_processing_jobs (id, asset_id, kind, quality, server_id, status, progress, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.AssetID, string(j.Kind), j.Quality, j.ServerID, string(j.Status),
		j.Progress, j.ErrorMessage, formatTime(j.CreatedAt))
	return err
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.ProcessingJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobCols+` FROM video_processing_jobs WHERE id = ?`, id)
	j, err := scanJobRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func scanJobRow(scan func(...interface{}) error) (*models.ProcessingJob, error) {
	var j models.ProcessingJob
	var kind, status, createdAt string
	var startedAt, completedAt sql.NullString
	err := scan(&j.ID, &j.AssetID, &kind, &j.Quality, &j.ServerID, &status,
		&j.Progress, &j.ErrorMessage, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	j.Kind = models.JobKind(kind)
	j.Status = models.JobStatus(status)
	j.CreatedAt = parseTime(createdAt)
	j.StartedAt = parseNullTime(startedAt)
	j.CompletedAt = parseNullTime(completedAt)
	return &j, nil
}

func (s *Store) collectJobs(rows *sql.Rows) ([]*models.ProcessingJob, error) {
	defer rows.Close()
	var out []*models.ProcessingJob
	for rows.Next() {
		j, err := scanJobRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListPendingJobs returns up to limit pending jobs, oldest first.
func (s *Store) ListPendingJobs(ctx context.Context, limit int) ([]*models.ProcessingJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobCols+` FROM video_processing_jobs
		 WHERE status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return s.collectJobs(rows)
}

func (s *Store) ListJobsByAsset(ctx context.Context, assetID string) ([]*models.ProcessingJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobCols+` FROM video_processing_jobs
		 WHERE asset_id = ? ORDER BY created_at`, assetID)
	if err != nil {
		return nil, err
	}
	return s.collectJobs(rows)
}

// MarkJobStarted transitions a job to processing and stamps the start time.
func (s *Store) MarkJobStarted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE video_processing_jobs SET status = 'processing', started_at = ? WHERE id = ?`,
		nowString(), id)
	return err
}

// MarkJobCompleted transitions a job to completed with full progress.
func (s *Store) MarkJobCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE video_processing_jobs
		 SET status = 'completed', progress = 100, completed_at = ? WHERE id = ?`,
		nowString(), id)
	return err
}

// MarkJobFailed transitions a job to failed and records the reason.
func (s *Store) MarkJobFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE video_processing_jobs
		 SET status = 'failed', error_message = ?, completed_at = ? WHERE id = ?`,
		errMsg, nowString(), id)
	return err
}

func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE video_processing_jobs SET progress = ? WHERE id = ?`, progress, id)
	return err
}

// CountJobsByStatus aggregates job counts for one asset keyed by status.
func (s *Store) CountJobsByStatus(ctx context.Context, assetID string) (map[models.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM video_processing_jobs WHERE asset_id = ? GROUP BY status`,
		assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.JobStatus(status)] = n
	}
	return counts, rows.Err()
}
