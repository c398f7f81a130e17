// Package backup implements the replica durability engine: backup creation
// with checksums, independent verification, restore, policy reconciliation
// and retention cleanup.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidvault/faillog"
	"vidvault/logger"
	"vidvault/models"
	"vidvault/storageback"
	"vidvault/store"
)

var (
	ErrRenditionNotFound = errors.New("rendition not found")
	ErrServerUnavailable = errors.New("storage server unavailable")
	ErrUnverifiedBackup  = errors.New("backup is not verified")
	ErrBackupNotFound    = errors.New("backup record not found")
)

type Engine struct {
	store         *store.Store
	rep           storageback.Replicator
	fail          *faillog.Log
	verifyDelay   time.Duration
	minCopies     int
	retentionDays int

	// single-flight guards for the scheduled loops
	policyMu  sync.Mutex
	cleanupMu sync.Mutex
}

func NewEngine(st *store.Store, rep storageback.Replicator, fail *faillog.Log, verifyDelay time.Duration, minCopies, retentionDays int) *Engine {
	if verifyDelay <= 0 {
		verifyDelay = 24 * time.Hour
	}
	if minCopies <= 0 {
		minCopies = 2
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Engine{
		store:         st,
		rep:           rep,
		fail:          fail,
		verifyDelay:   verifyDelay,
		minCopies:     minCopies,
		retentionDays: retentionDays,
	}
}

// countingReader tracks how many bytes passed through.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// CreateBackup copies a rendition to the target server, records the replica
// unverified, and schedules an independent re-check after the verify delay.
func (e *Engine) CreateBackup(ctx context.Context, renditionID, serverID, creationType string) (*models.BackupRecord, error) {
	rendition, err := e.store.GetRendition(ctx, renditionID)
	if err != nil {
		return nil, err
	}
	if rendition == nil {
		return nil, fmt.Errorf("%w: %s", ErrRenditionNotFound, renditionID)
	}

	target, err := e.store.GetServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if target == nil || !target.Active {
		return nil, fmt.Errorf("%w: %s", ErrServerUnavailable, serverID)
	}

	source, err := e.store.GetServer(ctx, rendition.ServerID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: source server %s", ErrServerUnavailable, rendition.ServerID)
	}

	backupPath := path.Join(target.StorageRoot, "backups",
		fmt.Sprintf("%s_%s_%d%s", rendition.ID, rendition.Quality, time.Now().Unix(), path.Ext(rendition.FilePath)))

	src, err := e.rep.Read(ctx, source, rendition.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source rendition: %w", err)
	}
	defer src.Close()

	hash := sha256.New()
	counter := &countingReader{r: io.TeeReader(src, hash)}
	if err := e.rep.Write(ctx, target, backupPath, counter); err != nil {
		return nil, fmt.Errorf("backup copy failed: %w", err)
	}

	record := &models.BackupRecord{
		ID:           uuid.NewString(),
		RenditionID:  rendition.ID,
		ServerID:     target.ID,
		Path:         backupPath,
		SizeBytes:    counter.n,
		Checksum:     hex.EncodeToString(hash.Sum(nil)),
		Verified:     false,
		CreationType: creationType,
		CreatedAt:    time.Now(),
	}
	if err := e.store.CreateBackupRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist backup record: %w", err)
	}

	if err := e.store.AddServerUsage(ctx, target.ID, record.SizeBytes); err != nil {
		logger.Errorf("failed to adjust usage for server %s: %v", target.ID, err)
	}
	if err := e.store.LogActivity(ctx, "backup_created", record.ID,
		fmt.Sprintf("rendition %s -> server %s (%d bytes)", rendition.ID, target.Name, record.SizeBytes)); err != nil {
		logger.Errorf("failed to log backup creation: %v", err)
	}

	e.scheduleVerification(record.ID)

	logger.Infof("backup %s created for rendition %s on %s", record.ID, rendition.ID, target.Name)
	return record, nil
}

// scheduleVerification queues the independent re-check. Verification runs
// detached from the creating request.
func (e *Engine) scheduleVerification(backupID string) {
	time.AfterFunc(e.verifyDelay, func() {
		if _, err := e.VerifyBackup(context.Background(), backupID); err != nil {
			logger.Errorf("scheduled verification of backup %s failed: %v", backupID, err)
		}
	})
}

// VerifyBackup re-checks existence, size and checksum against the recorded
// values. Mismatches are recorded as state (unverified plus a reason) and
// reported as false, not raised as errors.
func (e *Engine) VerifyBackup(ctx context.Context, backupID string) (bool, error) {
	record, err := e.store.GetBackupRecord(ctx, backupID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, fmt.Errorf("%w: %s", ErrBackupNotFound, backupID)
	}

	srv, err := e.store.GetServer(ctx, record.ServerID)
	if err != nil {
		return false, err
	}
	if srv == nil {
		return e.failVerification(ctx, record, "backup server no longer exists")
	}

	size, err := e.rep.Stat(ctx, srv, record.Path)
	if err != nil {
		return e.failVerification(ctx, record, fmt.Sprintf("backup file missing: %v", err))
	}
	if size != record.SizeBytes {
		return e.failVerification(ctx, record,
			fmt.Sprintf("size mismatch: recorded %d, found %d", record.SizeBytes, size))
	}

	rc, err := e.rep.Read(ctx, srv, record.Path)
	if err != nil {
		return e.failVerification(ctx, record, fmt.Sprintf("backup unreadable: %v", err))
	}
	hash := sha256.New()
	_, copyErr := io.Copy(hash, rc)
	rc.Close()
	if copyErr != nil {
		return e.failVerification(ctx, record, fmt.Sprintf("backup read failed: %v", copyErr))
	}
	if sum := hex.EncodeToString(hash.Sum(nil)); sum != record.Checksum {
		return e.failVerification(ctx, record,
			fmt.Sprintf("checksum mismatch: recorded %s, computed %s", record.Checksum, sum))
	}

	if err := e.store.SetBackupVerification(ctx, record.ID, true, ""); err != nil {
		return false, err
	}
	if err := e.store.LogActivity(ctx, "backup_verified", record.ID, ""); err != nil {
		logger.Errorf("failed to log verification: %v", err)
	}
	logger.Infof("backup %s verified", record.ID)
	return true, nil
}

func (e *Engine) failVerification(ctx context.Context, record *models.BackupRecord, reason string) (bool, error) {
	logger.Warnf("backup %s failed verification: %s", record.ID, reason)
	if err := e.store.SetBackupVerification(ctx, record.ID, false, reason); err != nil {
		return false, err
	}
	if e.fail != nil {
		if err := e.fail.Record(record.ID, "verify", errors.New(reason), record); err != nil {
			logger.Errorf("failed to archive verification failure: %v", err)
		}
	}
	return false, nil
}

// VerifyPendingBackups re-checks every unverified backup whose verify delay
// has elapsed. The timers armed at creation time live only in the creating
// process, so the scheduled loops sweep for the backups those timers would
// have covered. Returns how many backups passed.
func (e *Engine) VerifyPendingBackups(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-e.verifyDelay)
	pending, err := e.store.ListUnverifiedBackupsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending verifications: %w", err)
	}

	passed := 0
	for _, record := range pending {
		ok, err := e.VerifyBackup(ctx, record.ID)
		if err != nil {
			logger.Errorf("pending verification of backup %s failed: %v", record.ID, err)
			continue
		}
		if ok {
			passed++
		}
	}
	if len(pending) > 0 {
		logger.Infof("verification sweep: %d pending backups checked, %d passed", len(pending), passed)
	}
	return passed, nil
}

// RestoreFromBackup copies a verified replica onto the target server and
// repoints the rendition at the restored copy.
func (e *Engine) RestoreFromBackup(ctx context.Context, backupID, targetServerID string) error {
	record, err := e.store.GetBackupRecord(ctx, backupID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, backupID)
	}
	if !record.Verified {
		return fmt.Errorf("%w: %s", ErrUnverifiedBackup, backupID)
	}

	rendition, err := e.store.GetRendition(ctx, record.RenditionID)
	if err != nil {
		return err
	}
	if rendition == nil {
		return fmt.Errorf("%w: %s", ErrRenditionNotFound, record.RenditionID)
	}

	backupSrv, err := e.store.GetServer(ctx, record.ServerID)
	if err != nil {
		return err
	}
	if backupSrv == nil {
		return fmt.Errorf("%w: backup server %s", ErrServerUnavailable, record.ServerID)
	}

	target, err := e.store.GetServer(ctx, targetServerID)
	if err != nil {
		return err
	}
	if target == nil || !target.Active {
		return fmt.Errorf("%w: %s", ErrServerUnavailable, targetServerID)
	}

	restorePath := path.Join(target.StorageRoot, "restored",
		fmt.Sprintf("%s_%d%s", rendition.ID, time.Now().Unix(), path.Ext(record.Path)))

	src, err := e.rep.Read(ctx, backupSrv, record.Path)
	if err != nil {
		return fmt.Errorf("failed to read backup payload: %w", err)
	}
	defer src.Close()

	if err := e.rep.Write(ctx, target, restorePath, src); err != nil {
		return fmt.Errorf("restore copy failed: %w", err)
	}

	if err := e.store.UpdateRenditionLocation(ctx, rendition.ID, target.ID, restorePath); err != nil {
		return fmt.Errorf("failed to repoint rendition: %w", err)
	}

	if err := e.store.LogActivity(ctx, "backup_restored", record.ID,
		fmt.Sprintf("rendition %s restored to server %s", rendition.ID, target.Name)); err != nil {
		logger.Errorf("failed to log restore: %v", err)
	}
	logger.Infof("restored rendition %s from backup %s onto %s", rendition.ID, record.ID, target.Name)
	return nil
}

// Stats returns replica aggregates, scoped to one rendition when the id is
// non-empty.
func (e *Engine) Stats(ctx context.Context, renditionID string) (*store.BackupStats, error) {
	return e.store.GetBackupStats(ctx, renditionID)
}
