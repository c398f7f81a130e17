// Package pipeline schedules and executes transcode/thumbnail/analyze jobs
// against ingested source assets. Jobs live in the relational store and move
// through pending -> processing -> completed/failed; failed jobs stay put
// until an operator re-enqueues them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidvault/encoder"
	"vidvault/faillog"
	"vidvault/logger"
	"vidvault/models"
	"vidvault/store"
)

var (
	ErrNoActiveServers    = errors.New("no active storage servers available")
	ErrUnsupportedJobKind = errors.New("unsupported job kind")
	ErrAssetNotFound      = errors.New("asset not found")
)

type Pipeline struct {
	store      *store.Store
	enc        encoder.Transcoder
	fail       *faillog.Log
	batchSize  int
	thumbCount int
	thumbDir   string

	// guards against two queue passes claiming the same pending rows
	queueMu sync.Mutex
}

func New(st *store.Store, enc encoder.Transcoder, fail *faillog.Log, batchSize, thumbCount int, thumbDir string) *Pipeline {
	if batchSize <= 0 {
		batchSize = 10
	}
	if thumbCount <= 0 {
		thumbCount = 5
	}
	return &Pipeline{
		store:      st,
		enc:        enc,
		fail:       fail,
		batchSize:  batchSize,
		thumbCount: thumbCount,
		thumbDir:   thumbDir,
	}
}

// ScheduleProcessingJobs fans out the work for a freshly ingested asset:
// one transcode job per (ladder quality x active server), plus one thumbnail
// and one analyze job.
func (p *Pipeline) ScheduleProcessingJobs(ctx context.Context, assetID string) ([]*models.ProcessingJob, error) {
	asset, err := p.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}

	servers, err := p.store.ListActiveServers(ctx)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, ErrNoActiveServers
	}

	var jobs []*models.ProcessingJob
	for _, quality := range encoder.DefaultLadder {
		for _, srv := range servers {
			jobs = append(jobs, &models.ProcessingJob{
				ID:        uuid.NewString(),
				AssetID:   assetID,
				Kind:      models.JobTranscode,
				Quality:   quality,
				ServerID:  srv.ID,
				Status:    models.StatusPending,
				CreatedAt: time.Now(),
			})
		}
	}
	jobs = append(jobs,
		&models.ProcessingJob{
			ID:        uuid.NewString(),
			AssetID:   assetID,
			Kind:      models.JobThumbnail,
			Status:    models.StatusPending,
			CreatedAt: time.Now(),
		},
		&models.ProcessingJob{
			ID:        uuid.NewString(),
			AssetID:   assetID,
			Kind:      models.JobAnalyze,
			Status:    models.StatusPending,
			CreatedAt: time.Now(),
		},
	)

	for _, j := range jobs {
		if err := p.store.CreateJob(ctx, j); err != nil {
			return nil, fmt.Errorf("failed to enqueue %s job: %w", j.Kind, err)
		}
	}

	if err := p.store.LogActivity(ctx, "jobs_scheduled", assetID,
		fmt.Sprintf("%d jobs across %d servers", len(jobs), len(servers))); err != nil {
		logger.Errorf("failed to log job scheduling for %s: %v", assetID, err)
	}

	logger.Infof("scheduled %d processing jobs for asset %s", len(jobs), assetID)
	return jobs, nil
}

// ProcessJobQueue drains one batch of pending jobs, oldest first. Only one
// pass runs at a time; a second caller returns immediately. One job failing
// is recorded and does not abort the rest of the batch.
func (p *Pipeline) ProcessJobQueue(ctx context.Context) error {
	if !p.queueMu.TryLock() {
		logger.Debug("job queue pass already running, skipping")
		return nil
	}
	defer p.queueMu.Unlock()

	jobs, err := p.store.ListPendingJobs(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	logger.Infof("processing %d pending jobs", len(jobs))
	for _, job := range jobs {
		if err := p.processJob(ctx, job); err != nil {
			logger.Errorf("job %s (%s) failed: %v", job.ID, job.Kind, err)
			if err := p.store.MarkJobFailed(ctx, job.ID, err.Error()); err != nil {
				logger.Errorf("failed to record failure for job %s: %v", job.ID, err)
			}
			if p.fail != nil {
				if err := p.fail.Record(job.ID, "pipeline", err, job); err != nil {
					logger.Errorf("failed to archive failure for job %s: %v", job.ID, err)
				}
			}
		}
	}
	return nil
}

// processJob drives one job through its state machine.
func (p *Pipeline) processJob(ctx context.Context, job *models.ProcessingJob) error {
	if err := p.store.MarkJobStarted(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job started: %w", err)
	}

	var err error
	switch job.Kind {
	case models.JobTranscode:
		err = p.runTranscode(ctx, job)
	case models.JobThumbnail:
		err = p.runThumbnails(ctx, job)
	case models.JobAnalyze:
		err = p.runAnalyze(ctx, job)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedJobKind, job.Kind)
	}
	if err != nil {
		return err
	}

	return p.store.MarkJobCompleted(ctx, job.ID)
}

func (p *Pipeline) runTranscode(ctx context.Context, job *models.ProcessingJob) error {
	asset, err := p.store.GetAsset(ctx, job.AssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, job.AssetID)
	}

	srv, err := p.store.GetServer(ctx, job.ServerID)
	if err != nil {
		return err
	}
	if srv == nil || !srv.Active {
		return fmt.Errorf("target server %s is not available", job.ServerID)
	}

	preset, ok := encoder.PresetFor(job.Quality)
	if !ok {
		return fmt.Errorf("no preset for quality %s", job.Quality)
	}

	outDir := filepath.Join(srv.StorageRoot, "renditions", asset.ID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create rendition directory: %w", err)
	}
	outPath := filepath.Join(outDir, job.Quality+".mp4")

	lastReported := -1
	err = p.enc.Transcode(ctx, asset.FilePath, outPath, preset, func(frac float64) {
		pct := int(frac * 100)
		if pct > lastReported {
			lastReported = pct
			if err := p.store.UpdateJobProgress(ctx, job.ID, pct); err != nil {
				logger.Debugf("progress update failed for job %s: %v", job.ID, err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("transcode to %s failed: %w", job.Quality, err)
	}

	var size int64
	if fi, err := os.Stat(outPath); err == nil {
		size = fi.Size()
	}

	rendition := &models.QualityRendition{
		ID:        uuid.NewString(),
		AssetID:   asset.ID,
		Quality:   job.Quality,
		FilePath:  outPath,
		ServerID:  srv.ID,
		SizeBytes: size,
		Bitrate:   bitrateInt(preset.VideoBitrate),
		Codec:     preset.VideoCodec,
		Ready:     true,
		CreatedAt: time.Now(),
	}
	if err := p.store.CreateRendition(ctx, rendition); err != nil {
		return fmt.Errorf("failed to register rendition: %w", err)
	}

	logger.Infof("rendition %s ready for asset %s (%s)", job.Quality, asset.ID, srv.Name)
	return nil
}

func (p *Pipeline) runThumbnails(ctx context.Context, job *models.ProcessingJob) error {
	asset, err := p.store.GetAsset(ctx, job.AssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, job.AssetID)
	}

	// reuse a prior analyze result when one exists, probe otherwise
	duration := asset.DurationSeconds
	if duration <= 0 {
		meta, err := p.enc.Probe(ctx, asset.FilePath)
		if err != nil {
			return fmt.Errorf("probe for thumbnails failed: %w", err)
		}
		duration = meta.DurationSeconds
	}
	if duration <= 0 {
		return fmt.Errorf("cannot place thumbnails: source duration unknown")
	}

	outDir := filepath.Join(p.thumbDir, asset.ID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	var paths []string
	for i := 1; i <= p.thumbCount; i++ {
		offset := duration * float64(i) / float64(p.thumbCount+1)
		outPath := filepath.Join(outDir, fmt.Sprintf("thumb_%02d.jpg", i))
		if err := p.enc.ExtractStill(ctx, asset.FilePath, outPath, offset); err != nil {
			return fmt.Errorf("thumbnail %d failed: %w", i, err)
		}
		paths = append(paths, outPath)
		if err := p.store.UpdateJobProgress(ctx, job.ID, i*100/p.thumbCount); err != nil {
			logger.Debugf("progress update failed for job %s: %v", job.ID, err)
		}
	}

	if err := p.store.LogActivity(ctx, "thumbnails_created", asset.ID, strings.Join(paths, ",")); err != nil {
		logger.Errorf("failed to log thumbnails for %s: %v", asset.ID, err)
	}
	return nil
}

func (p *Pipeline) runAnalyze(ctx context.Context, job *models.ProcessingJob) error {
	asset, err := p.store.GetAsset(ctx, job.AssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, job.AssetID)
	}

	meta, err := p.enc.Probe(ctx, asset.FilePath)
	if err != nil {
		return fmt.Errorf("analyze probe failed: %w", err)
	}

	if err := p.store.UpdateAssetDuration(ctx, asset.ID, meta.DurationSeconds); err != nil {
		return fmt.Errorf("failed to persist duration: %w", err)
	}

	detail := fmt.Sprintf("%.1fs %dx%d %s/%s %.2ffps %dch %s",
		meta.DurationSeconds, meta.Width, meta.Height,
		meta.VideoCodec, meta.AudioCodec, meta.FrameRate, meta.AudioChannels, meta.AspectRatio)
	if err := p.store.LogActivity(ctx, "asset_analyzed", asset.ID, detail); err != nil {
		logger.Errorf("failed to log analysis for %s: %v", asset.ID, err)
	}
	return nil
}

// bitrateInt converts a preset bitrate like "5000k" to bits per second.
func bitrateInt(b string) int {
	b = strings.TrimSuffix(b, "k")
	n, err := strconv.Atoi(b)
	if err != nil {
		return 0
	}
	return n * 1000
}

// Run drains the queue on a fixed interval until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	logger.Infof("job pipeline started (interval %v)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("job pipeline stopped")
			return
		case <-ticker.C:
			if err := p.ProcessJobQueue(ctx); err != nil {
				logger.Errorf("job queue pass failed: %v", err)
			}
		}
	}
}
