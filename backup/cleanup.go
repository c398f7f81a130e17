package backup

import (
	"context"
	"fmt"
	"time"

	"vidvault/logger"
	"vidvault/models"
)

// CleanupOldBackups deletes backups older than the retention window, but
// never below the engine's minimum of newer verified copies per rendition.
// Returns how many backups were removed.
func (e *Engine) CleanupOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = e.retentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	expired, err := e.store.ListBackupsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired backups: %w", err)
	}

	deleted := 0
	for _, record := range expired {
		newer, err := e.store.CountVerifiedBackupsSince(ctx, record.RenditionID, cutoff, record.ID)
		if err != nil {
			logger.Errorf("cleanup: floor check for backup %s failed: %v", record.ID, err)
			continue
		}
		if newer < e.minCopies {
			logger.Debugf("cleanup: keeping expired backup %s, only %d newer verified copies", record.ID, newer)
			continue
		}

		if err := e.deleteBackup(ctx, record); err != nil {
			logger.Errorf("cleanup: failed to delete backup %s: %v", record.ID, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		logger.Infof("retention cleanup removed %d backups older than %d days", deleted, retentionDays)
	}
	return deleted, nil
}

// deleteBackup removes the physical replica where possible, then the record.
// A missing server or file does not keep the record alive.
func (e *Engine) deleteBackup(ctx context.Context, record *models.BackupRecord) error {
	srv, err := e.store.GetServer(ctx, record.ServerID)
	if err != nil {
		return err
	}
	if srv != nil {
		if err := e.rep.Delete(ctx, srv, record.Path); err != nil {
			logger.Warnf("could not delete replica %s on %s: %v", record.Path, srv.Name, err)
		}
	}

	if err := e.store.DeleteBackupRecord(ctx, record.ID); err != nil {
		return err
	}
	if err := e.store.AddServerUsage(ctx, record.ServerID, -record.SizeBytes); err != nil {
		logger.Errorf("failed to adjust usage for server %s: %v", record.ServerID, err)
	}
	if err := e.store.LogActivity(ctx, "backup_expired", record.ID,
		fmt.Sprintf("rendition %s, %d bytes freed", record.RenditionID, record.SizeBytes)); err != nil {
		logger.Errorf("failed to log backup expiry: %v", err)
	}
	return nil
}
