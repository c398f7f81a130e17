package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"vidvault/models"
)

const policyCols = `id, name, active, frequency_hours, retention_days, min_copies, server_ids, quality_filter, created_at`

func (s *Store) CreatePolicy(ctx context.Context, p *models.BackupPolicy) error {
	serverIDs, err := json.Marshal(p.ServerIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backup_policies (`+policyCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, boolToInt(p.Active), p.FrequencyHrs, p.RetentionDays,
		p.MinCopies, string(serverIDs), p.QualityFilter, formatTime(p.CreatedAt))
	return err
}

func scanPolicyRow(scan func(...interface{}) error) (*models.BackupPolicy, error) {
	var p models.BackupPolicy
	var active int
	var serverIDs, createdAt string
	err := scan(&p.ID, &p.Name, &active, &p.FrequencyHrs, &p.RetentionDays,
		&p.MinCopies, &serverIDs, &p.QualityFilter, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Active = active == 1
	p.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(serverIDs), &p.ServerIDs); err != nil {
		p.ServerIDs = nil
	}
	return &p, nil
}

func (s *Store) GetPolicy(ctx context.Context, id string) (*models.BackupPolicy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyCols+` FROM backup_policies WHERE id = ?`, id)
	p, err := scanPolicyRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Store) ListActivePolicies(ctx context.Context) ([]*models.BackupPolicy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyCols+` FROM backup_policies WHERE active = 1 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.BackupPolicy
	for rows.Next() {
		p, err := scanPolicyRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPolicyActive toggles activation; the engine never mutates anything else.
func (s *Store) SetPolicyActive(ctx context.Context, id string, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE backup_policies SET active = ? WHERE id = ?`, boolToInt(active), id)
	return err
}
