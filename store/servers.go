package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"vidvault/models"
)

const serverCols = `id, name, kind, storage_root, priority, active, capacity_bytes, used_bytes, access`

func (s *Store) CreateServer(ctx context.Context, srv *models.StorageServer) error {
	access := srv.Access
	if access == nil {
		access = map[string]string{}
	}
	accessJSON, err := json.Marshal(access)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO internal_servers (`+serverCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, srv.ID, srv.Name, srv.Kind, srv.StorageRoot, srv.Priority,
		boolToInt(srv.Active), srv.CapacityBytes, srv.UsedBytes, string(accessJSON))
	return err
}

func scanServerRow(scan func(...interface{}) error) (*models.StorageServer, error) {
	var srv models.StorageServer
	var active int
	var access string
	err := scan(&srv.ID, &srv.Name, &srv.Kind, &srv.StorageRoot, &srv.Priority,
		&active, &srv.CapacityBytes, &srv.UsedBytes, &access)
	if err != nil {
		return nil, err
	}
	srv.Active = active == 1
	if err := json.Unmarshal([]byte(access), &srv.Access); err != nil {
		srv.Access = map[string]string{}
	}
	return &srv, nil
}

func (s *Store) GetServer(ctx context.Context, id string) (*models.StorageServer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+serverCols+` FROM internal_servers WHERE id = ?`, id)
	srv, err := scanServerRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return srv, err
}

// ListActiveServers returns active servers ordered by priority (highest first).
func (s *Store) ListActiveServers(ctx context.Context) ([]*models.StorageServer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serverCols+` FROM internal_servers WHERE active = 1 ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.StorageServer
	for rows.Next() {
		srv, err := scanServerRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}

// AddServerUsage adjusts the utilization counter after replica writes/deletes.
func (s *Store) AddServerUsage(ctx context.Context, id string, delta int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE internal_servers SET used_bytes = MAX(0, used_bytes + ?) WHERE id = ?`, delta, id)
	return err
}
