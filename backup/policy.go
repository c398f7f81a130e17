package backup

import (
	"context"
	"fmt"
	"sort"

	"vidvault/logger"
	"vidvault/models"
)

// ExecuteBackupPolicies reconciles every active policy. Policies are isolated
// from each other: one failing policy never blocks the rest.
func (e *Engine) ExecuteBackupPolicies(ctx context.Context) error {
	policies, err := e.store.ListActivePolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active policies: %w", err)
	}

	for _, policy := range policies {
		if err := e.ExecuteSinglePolicy(ctx, policy); err != nil {
			logger.Errorf("policy %s (%s) failed: %v", policy.Name, policy.ID, err)
			if e.fail != nil {
				if ferr := e.fail.Record(policy.ID, "backup", err, policy); ferr != nil {
					logger.Errorf("failed to archive policy failure: %v", ferr)
				}
			}
		}
	}
	return nil
}

// ExecuteSinglePolicy brings every matching rendition up to the policy's
// minimum verified copy count. Renditions are handled independently.
func (e *Engine) ExecuteSinglePolicy(ctx context.Context, policy *models.BackupPolicy) error {
	renditions, err := e.store.ListReadyRenditions(ctx, policy.QualityFilter)
	if err != nil {
		return fmt.Errorf("failed to list renditions: %w", err)
	}

	servers, err := e.store.ListActiveServers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active servers: %w", err)
	}

	allowed := make(map[string]bool, len(policy.ServerIDs))
	for _, id := range policy.ServerIDs {
		allowed[id] = true
	}

	for _, rendition := range renditions {
		if err := e.reconcileRendition(ctx, policy, rendition, servers, allowed); err != nil {
			logger.Errorf("policy %s: rendition %s not reconciled: %v", policy.Name, rendition.ID, err)
		}
	}
	return nil
}

func (e *Engine) reconcileRendition(ctx context.Context, policy *models.BackupPolicy, rendition *models.QualityRendition, servers []*models.StorageServer, allowed map[string]bool) error {
	verified, err := e.store.CountVerifiedBackups(ctx, rendition.ID)
	if err != nil {
		return err
	}
	shortfall := policy.MinCopies - verified
	if shortfall <= 0 {
		return nil
	}

	held, err := e.store.ServersHoldingBackup(ctx, rendition.ID)
	if err != nil {
		return err
	}

	// Candidates: active servers the policy names, excluding any already
	// holding a copy and the rendition's own home.
	var candidates []*models.StorageServer
	for _, srv := range servers {
		if !allowed[srv.ID] || held[srv.ID] || srv.ID == rendition.ServerID {
			continue
		}
		candidates = append(candidates, srv)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return utilization(candidates[i]) < utilization(candidates[j])
	})

	if len(candidates) == 0 {
		logger.Warnf("policy %s: no eligible servers for rendition %s (need %d more copies)",
			policy.Name, rendition.ID, shortfall)
		return nil
	}
	if shortfall > len(candidates) {
		shortfall = len(candidates)
	}

	for _, srv := range candidates[:shortfall] {
		if _, err := e.CreateBackup(ctx, rendition.ID, srv.ID, models.CreationAuto); err != nil {
			return fmt.Errorf("backup on %s: %w", srv.Name, err)
		}
	}
	return nil
}

// utilization ranks servers for replica placement; least used wins.
func utilization(srv *models.StorageServer) float64 {
	if srv.CapacityBytes > 0 {
		return float64(srv.UsedBytes) / float64(srv.CapacityBytes)
	}
	return float64(srv.UsedBytes)
}
