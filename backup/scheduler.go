package backup

import (
	"context"
	"time"

	"vidvault/logger"
)

// StartAutomaticBackupSystem runs the hourly policy pass and the daily
// retention cleanup until the context is cancelled. TryLock skips a tick when
// the previous run is still in flight, so passes never overlap.
func (e *Engine) StartAutomaticBackupSystem(ctx context.Context) {
	// Pick up backups whose verification timer was lost to a restart.
	go func() {
		if _, err := e.VerifyPendingBackups(ctx); err != nil {
			logger.Errorf("startup verification sweep failed: %v", err)
		}
	}()
	go e.policyLoop(ctx)
	go e.cleanupLoop(ctx)
	logger.Info("automatic backup system started (hourly policies, daily cleanup)")
}

func (e *Engine) policyLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.policyMu.TryLock() {
				logger.Warn("skipping policy pass, previous run still in progress")
				continue
			}
			// Overdue verifications run first so the policy pass sees an
			// accurate verified-copy count.
			if _, err := e.VerifyPendingBackups(ctx); err != nil {
				logger.Errorf("verification sweep failed: %v", err)
			}
			if err := e.ExecuteBackupPolicies(ctx); err != nil {
				logger.Errorf("scheduled policy pass failed: %v", err)
			}
			e.policyMu.Unlock()
		}
	}
}

func (e *Engine) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.cleanupMu.TryLock() {
				logger.Warn("skipping retention cleanup, previous run still in progress")
				continue
			}
			if _, err := e.CleanupOldBackups(ctx, e.retentionDays); err != nil {
				logger.Errorf("scheduled retention cleanup failed: %v", err)
			}
			e.cleanupMu.Unlock()
		}
	}
}
