package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidvault/encoder"
	"vidvault/models"
	"vidvault/store"
)

// fakeTranscoder fabricates outputs without running ffmpeg. Qualities listed
// in failQualities fail their transcode.
type fakeTranscoder struct {
	mu            sync.Mutex
	failQualities map[string]bool
	failProbe     bool
	transcodes    int
	stills        int
	probes        int
}

func (f *fakeTranscoder) Transcode(ctx context.Context, input, output string, preset encoder.Preset, onProgress func(float64)) error {
	f.mu.Lock()
	f.transcodes++
	fail := f.failQualities[fmt.Sprintf("%dp", preset.Height)]
	f.mu.Unlock()

	if fail {
		return errors.New("encoder exited with status 1")
	}
	if onProgress != nil {
		onProgress(0.5)
		onProgress(1.0)
	}
	return os.WriteFile(output, []byte("rendition-payload"), 0644)
}

func (f *fakeTranscoder) Probe(ctx context.Context, input string) (*models.VideoMetadata, error) {
	f.mu.Lock()
	f.probes++
	fail := f.failProbe
	f.mu.Unlock()

	if fail {
		return nil, errors.New("ffprobe failed to parse input")
	}
	return &models.VideoMetadata{
		DurationSeconds: 120,
		Width:           1920,
		Height:          1080,
		VideoCodec:      "h264",
		AudioCodec:      "aac",
		FrameRate:       29.97,
		AudioChannels:   2,
		AspectRatio:     "16:9",
	}, nil
}

func (f *fakeTranscoder) ExtractStill(ctx context.Context, input, output string, offsetSeconds float64) error {
	f.mu.Lock()
	f.stills++
	f.mu.Unlock()
	return os.WriteFile(output, []byte("jpeg"), 0644)
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedAsset(t *testing.T, st *store.Store, id string) *models.ContentAsset {
	t.Helper()
	asset := &models.ContentAsset{
		ID:        id,
		Title:     "test video",
		FilePath:  filepath.Join(t.TempDir(), "source.mp4"),
		ServerID:  "srv-1",
		CreatedAt: time.Now(),
	}
	if err := st.CreateAsset(context.Background(), asset); err != nil {
		t.Fatalf("Failed to create asset: %v", err)
	}
	return asset
}

func seedServer(t *testing.T, st *store.Store, id string, active bool) *models.StorageServer {
	t.Helper()
	srv := &models.StorageServer{
		ID:          id,
		Name:        "server " + id,
		Kind:        "local",
		StorageRoot: filepath.Join(t.TempDir(), id),
		Active:      active,
	}
	if err := st.CreateServer(context.Background(), srv); err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv
}

func TestScheduleProcessingJobs(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	seedAsset(t, st, "asset-1")
	seedServer(t, st, "srv-1", true)
	seedServer(t, st, "srv-2", true)
	seedServer(t, st, "srv-3", true)
	seedServer(t, st, "srv-off", false)

	p := New(st, &fakeTranscoder{}, nil, 20, 3, t.TempDir())

	jobs, err := p.ScheduleProcessingJobs(ctx, "asset-1")
	if err != nil {
		t.Fatalf("Failed to schedule jobs: %v", err)
	}

	// 4 ladder qualities x 3 active servers, plus thumbnail and analyze.
	if len(jobs) != 14 {
		t.Fatalf("expected 14 jobs, got %d", len(jobs))
	}

	kinds := map[models.JobKind]int{}
	for _, j := range jobs {
		kinds[j.Kind]++
		if j.Status != models.StatusPending {
			t.Errorf("new job %s must start pending, got %s", j.ID, j.Status)
		}
		if j.ServerID == "srv-off" {
			t.Error("inactive servers must not receive jobs")
		}
	}
	if kinds[models.JobTranscode] != 12 || kinds[models.JobThumbnail] != 1 || kinds[models.JobAnalyze] != 1 {
		t.Errorf("unexpected kind distribution: %v", kinds)
	}
}

func TestScheduleRequiresAssetAndServers(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	p := New(st, &fakeTranscoder{}, nil, 20, 3, t.TempDir())

	if _, err := p.ScheduleProcessingJobs(ctx, "missing"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}

	seedAsset(t, st, "asset-1")
	if _, err := p.ScheduleProcessingJobs(ctx, "asset-1"); !errors.Is(err, ErrNoActiveServers) {
		t.Errorf("expected ErrNoActiveServers, got %v", err)
	}
}

func TestProcessJobQueueHappyPath(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	seedAsset(t, st, "asset-1")
	seedServer(t, st, "srv-1", true)

	enc := &fakeTranscoder{}
	p := New(st, enc, nil, 20, 3, t.TempDir())

	if _, err := p.ScheduleProcessingJobs(ctx, "asset-1"); err != nil {
		t.Fatalf("Failed to schedule: %v", err)
	}
	if err := p.ProcessJobQueue(ctx); err != nil {
		t.Fatalf("Queue pass failed: %v", err)
	}

	status, err := p.GetProcessingStatus(ctx, "asset-1")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.Counts[models.StatusCompleted] != status.Total {
		t.Errorf("expected all %d jobs completed, counts: %v", status.Total, status.Counts)
	}
	if status.Completion != 100 {
		t.Errorf("expected 100%% completion, got %f", status.Completion)
	}

	// One rendition per ladder quality must be registered and ready.
	for _, quality := range encoder.DefaultLadder {
		renditions, err := st.ListReadyRenditions(ctx, quality)
		if err != nil {
			t.Fatalf("Failed to list renditions: %v", err)
		}
		if len(renditions) != 1 {
			t.Errorf("expected 1 ready %s rendition, got %d", quality, len(renditions))
			continue
		}
		r := renditions[0]
		if r.AssetID != "asset-1" || !r.Ready {
			t.Errorf("bad rendition: %+v", r)
		}
		if _, err := os.Stat(r.FilePath); err != nil {
			t.Errorf("rendition file missing: %v", err)
		}
	}

	// Analyze persisted the probed duration.
	asset, err := st.GetAsset(ctx, "asset-1")
	if err != nil {
		t.Fatalf("Failed to reload asset: %v", err)
	}
	if asset.DurationSeconds != 120 {
		t.Errorf("expected duration 120, got %f", asset.DurationSeconds)
	}

	if enc.stills != 3 {
		t.Errorf("expected 3 thumbnail stills, got %d", enc.stills)
	}
}

func TestFailureIsolation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	seedAsset(t, st, "asset-1")
	seedServer(t, st, "srv-1", true)

	enc := &fakeTranscoder{failQualities: map[string]bool{"480p": true}}
	p := New(st, enc, nil, 20, 3, t.TempDir())

	if _, err := p.ScheduleProcessingJobs(ctx, "asset-1"); err != nil {
		t.Fatalf("Failed to schedule: %v", err)
	}
	if err := p.ProcessJobQueue(ctx); err != nil {
		t.Fatalf("Queue pass must not abort on a single job failure: %v", err)
	}

	status, err := p.GetProcessingStatus(ctx, "asset-1")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.Counts[models.StatusFailed] != 1 {
		t.Errorf("expected exactly 1 failed job, counts: %v", status.Counts)
	}
	if status.Counts[models.StatusCompleted] != status.Total-1 {
		t.Errorf("other jobs must complete, counts: %v", status.Counts)
	}

	for _, j := range status.Jobs {
		if j.Status == models.StatusFailed {
			if j.Quality != "480p" {
				t.Errorf("wrong job failed: %+v", j)
			}
			if j.ErrorMessage == "" {
				t.Error("failed job must carry the error message")
			}
			if j.CompletedAt == nil {
				t.Error("failed job must carry a completion timestamp")
			}
		}
	}
}

func TestUnsupportedJobKindFails(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	seedAsset(t, st, "asset-1")

	job := &models.ProcessingJob{
		ID:        "job-odd",
		AssetID:   "asset-1",
		Kind:      models.JobKind("defragment"),
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	p := New(st, &fakeTranscoder{}, nil, 20, 3, t.TempDir())
	if err := p.ProcessJobQueue(ctx); err != nil {
		t.Fatalf("Queue pass failed: %v", err)
	}

	got, err := st.GetJob(ctx, "job-odd")
	if err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if got.Status != models.StatusFailed {
		t.Errorf("unknown kind must fail the job, got %s", got.Status)
	}
}

func TestThumbnailsReuseAnalyzedDuration(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	asset := seedAsset(t, st, "asset-1")
	if err := st.UpdateAssetDuration(ctx, asset.ID, 60); err != nil {
		t.Fatalf("Failed to set duration: %v", err)
	}

	job := &models.ProcessingJob{
		ID:        "job-thumb",
		AssetID:   asset.ID,
		Kind:      models.JobThumbnail,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	enc := &fakeTranscoder{failProbe: true} // probing would fail; stored duration must be used
	p := New(st, enc, nil, 20, 4, t.TempDir())
	if err := p.ProcessJobQueue(ctx); err != nil {
		t.Fatalf("Queue pass failed: %v", err)
	}

	got, err := st.GetJob(ctx, "job-thumb")
	if err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("expected completed, got %s (%s)", got.Status, got.ErrorMessage)
	}
	if enc.probes != 0 {
		t.Errorf("stored duration must shortcut the probe, got %d probes", enc.probes)
	}
	if enc.stills != 4 {
		t.Errorf("expected 4 stills, got %d", enc.stills)
	}
}

func TestGetProcessingStatusEmpty(t *testing.T) {
	st := testStore(t)
	p := New(st, &fakeTranscoder{}, nil, 20, 3, t.TempDir())

	status, err := p.GetProcessingStatus(context.Background(), "nothing-here")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.Total != 0 || status.Completion != 0 {
		t.Errorf("empty asset must report zero totals, got %+v", status)
	}
}

func TestBitrateInt(t *testing.T) {
	if got := bitrateInt("5000k"); got != 5000000 {
		t.Errorf("expected 5000000, got %d", got)
	}
	if got := bitrateInt("garbage"); got != 0 {
		t.Errorf("expected 0 for unparseable bitrate, got %d", got)
	}
}
