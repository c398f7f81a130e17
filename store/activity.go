package store

import (
	"context"

	"github.com/google/uuid"

	"vidvault/models"
)

// LogActivity appends one row to the activity log. Failures here are the
// caller's choice to ignore; the log is observability, not state.
func (s *Store) LogActivity(ctx context.Context, action, targetID, detail string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_activity_log (id, action, target_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), action, targetID, detail, nowString())
	return err
}

func (s *Store) ListRecentActivity(ctx context.Context, limit int) ([]*models.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, target_id, detail, created_at
		FROM video_activity_log ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Action, &e.TargetID, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}
