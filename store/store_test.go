package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"vidvault/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAssetRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	asset := &models.ContentAsset{
		ID:        "asset-1",
		Title:     "launch recording",
		FilePath:  "/ingest/launch.mp4",
		ServerID:  "srv-1",
		CreatedAt: time.Now(),
	}
	if err := st.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("Failed to create asset: %v", err)
	}

	got, err := st.GetAsset(ctx, "asset-1")
	if err != nil {
		t.Fatalf("Failed to get asset: %v", err)
	}
	if got == nil {
		t.Fatal("Expected asset, got nil")
	}
	if got.Title != asset.Title || got.FilePath != asset.FilePath {
		t.Errorf("asset fields lost: %+v", got)
	}

	if err := st.UpdateAssetDuration(ctx, "asset-1", 93.5); err != nil {
		t.Fatalf("Failed to update duration: %v", err)
	}
	got, _ = st.GetAsset(ctx, "asset-1")
	if got.DurationSeconds != 93.5 {
		t.Errorf("expected duration 93.5, got %f", got.DurationSeconds)
	}

	missing, err := st.GetAsset(ctx, "nope")
	if err != nil {
		t.Fatalf("Missing asset lookup errored: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing asset")
	}
}

func TestJobStateMachine(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := &models.ProcessingJob{
		ID:        "job-1",
		AssetID:   "asset-1",
		Kind:      models.JobTranscode,
		Quality:   "720p",
		ServerID:  "srv-1",
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	pending, err := st.ListPendingJobs(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending job, got %d", len(pending))
	}

	if err := st.MarkJobStarted(ctx, "job-1"); err != nil {
		t.Fatalf("Failed to mark started: %v", err)
	}
	got, _ := st.GetJob(ctx, "job-1")
	if got.Status != models.StatusProcessing || got.StartedAt == nil {
		t.Errorf("started job in wrong state: %+v", got)
	}

	if err := st.UpdateJobProgress(ctx, "job-1", 150); err != nil {
		t.Fatalf("Failed to update progress: %v", err)
	}
	got, _ = st.GetJob(ctx, "job-1")
	if got.Progress != 100 {
		t.Errorf("progress must clamp to 100, got %d", got.Progress)
	}

	if err := st.MarkJobCompleted(ctx, "job-1"); err != nil {
		t.Fatalf("Failed to mark completed: %v", err)
	}
	got, _ = st.GetJob(ctx, "job-1")
	if got.Status != models.StatusCompleted || got.CompletedAt == nil || got.Progress != 100 {
		t.Errorf("completed job in wrong state: %+v", got)
	}

	pending, _ = st.ListPendingJobs(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("completed job still listed pending")
	}
}

func TestMarkJobFailedKeepsRow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := &models.ProcessingJob{
		ID: "job-1", AssetID: "asset-1", Kind: models.JobAnalyze,
		Status: models.StatusPending, CreatedAt: time.Now(),
	}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	if err := st.MarkJobFailed(ctx, "job-1", "probe exploded"); err != nil {
		t.Fatalf("Failed to mark failed: %v", err)
	}

	got, err := st.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if got.Status != models.StatusFailed || got.ErrorMessage != "probe exploded" {
		t.Errorf("failed job in wrong state: %+v", got)
	}

	counts, err := st.CountJobsByStatus(ctx, "asset-1")
	if err != nil {
		t.Fatalf("Failed to count jobs: %v", err)
	}
	if counts[models.StatusFailed] != 1 {
		t.Errorf("failed job missing from counts: %v", counts)
	}
}

func TestMarkInterruptedJobs(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	stuck := &models.ProcessingJob{
		ID: "job-stuck", AssetID: "asset-1", Kind: models.JobTranscode,
		Status: models.StatusPending, CreatedAt: time.Now(),
	}
	clean := &models.ProcessingJob{
		ID: "job-clean", AssetID: "asset-1", Kind: models.JobAnalyze,
		Status: models.StatusPending, CreatedAt: time.Now(),
	}
	for _, j := range []*models.ProcessingJob{stuck, clean} {
		if err := st.CreateJob(ctx, j); err != nil {
			t.Fatalf("Failed to create job: %v", err)
		}
	}
	if err := st.MarkJobStarted(ctx, "job-stuck"); err != nil {
		t.Fatalf("Failed to mark started: %v", err)
	}

	if err := st.MarkInterruptedJobs(ctx); err != nil {
		t.Fatalf("Failed to mark interrupted jobs: %v", err)
	}

	got, _ := st.GetJob(ctx, "job-stuck")
	if got.Status != models.StatusFailed {
		t.Errorf("processing job must fail on restart recovery, got %s", got.Status)
	}
	got, _ = st.GetJob(ctx, "job-clean")
	if got.Status != models.StatusPending {
		t.Errorf("pending job must survive restart recovery, got %s", got.Status)
	}
}

func TestDeleteAssetKeepsAuditRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateAsset(ctx, &models.ContentAsset{
		ID: "asset-1", Title: "t", FilePath: "/a.mp4", ServerID: "srv-1", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Failed to create asset: %v", err)
	}
	if err := st.CreateRendition(ctx, &models.QualityRendition{
		ID: "rend-1", AssetID: "asset-1", Quality: "720p",
		FilePath: "/r.mp4", ServerID: "srv-1", Ready: true, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Failed to create rendition: %v", err)
	}
	if err := st.CreateJob(ctx, &models.ProcessingJob{
		ID: "job-1", AssetID: "asset-1", Kind: models.JobTranscode,
		Status: models.StatusCompleted, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	if err := st.DeleteAsset(ctx, "asset-1"); err != nil {
		t.Fatalf("Failed to delete asset: %v", err)
	}

	if a, _ := st.GetAsset(ctx, "asset-1"); a != nil {
		t.Error("asset row still present")
	}
	if r, _ := st.GetRendition(ctx, "rend-1"); r != nil {
		t.Error("rendition row still present")
	}
	// Job rows are the audit trail and survive the asset.
	if j, _ := st.GetJob(ctx, "job-1"); j == nil {
		t.Error("job audit row was deleted with the asset")
	}
}

func TestActivityLog(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.LogActivity(ctx, "asset_analyzed", "asset-1", "120s 1920x1080"); err != nil {
		t.Fatalf("Failed to log activity: %v", err)
	}
	if err := st.LogActivity(ctx, "backup_created", "bk-1", ""); err != nil {
		t.Fatalf("Failed to log activity: %v", err)
	}

	entries, err := st.ListRecentActivity(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list activity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestPolicyRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	p := &models.BackupPolicy{
		ID: "pol-1", Name: "nightly", Active: true,
		FrequencyHrs: 24, RetentionDays: 30, MinCopies: 2,
		ServerIDs: []string{"srv-a", "srv-b"}, QualityFilter: "1080p",
		CreatedAt: time.Now(),
	}
	if err := st.CreatePolicy(ctx, p); err != nil {
		t.Fatalf("Failed to create policy: %v", err)
	}

	got, err := st.GetPolicy(ctx, "pol-1")
	if err != nil {
		t.Fatalf("Failed to get policy: %v", err)
	}
	if len(got.ServerIDs) != 2 || got.ServerIDs[0] != "srv-a" {
		t.Errorf("server ids lost in round trip: %v", got.ServerIDs)
	}
	if got.QualityFilter != "1080p" || got.MinCopies != 2 {
		t.Errorf("policy fields lost: %+v", got)
	}

	if err := st.SetPolicyActive(ctx, "pol-1", false); err != nil {
		t.Fatalf("Failed to deactivate policy: %v", err)
	}
	active, err := st.ListActivePolicies(ctx)
	if err != nil {
		t.Fatalf("Failed to list active policies: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("deactivated policy still listed")
	}
}

func TestServerUsageFloor(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateServer(ctx, &models.StorageServer{
		ID: "srv-1", Name: "n", Kind: "local", StorageRoot: "/vol", Active: true, UsedBytes: 10,
	}); err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	if err := st.AddServerUsage(ctx, "srv-1", -100); err != nil {
		t.Fatalf("Failed to adjust usage: %v", err)
	}
	srv, _ := st.GetServer(ctx, "srv-1")
	if srv.UsedBytes != 0 {
		t.Errorf("usage must floor at zero, got %d", srv.UsedBytes)
	}
}
