package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"vidvault/backup"
	"vidvault/config"
	"vidvault/encoder"
	"vidvault/faillog"
	"vidvault/logger"
	"vidvault/pipeline"
	"vidvault/routes"
	"vidvault/storageback"
	"vidvault/store"
)

func main() {
	config.LoadEnv()

	if err := logger.Init(filepath.Join(config.GetDataDir(), "vidvault.log"), true); err != nil {
		logger.Errorf("Failed to open log file, continuing with console only: %v", err)
	}
	defer logger.Close()

	logger.Info("Starting Vidvault server initialization")

	// Relational store
	logger.Debug("Opening database")
	st, err := store.Open(config.GetDatabasePath())
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	logger.Info("Database opened successfully")

	// Failure archive
	logger.Debug("Opening failure archive")
	failures, err := faillog.Open(config.GetFailureLogPath())
	if err != nil {
		logger.Fatalf("Failed to open failure archive: %v", err)
	}
	defer failures.Close()
	logger.Info("Failure archive opened successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Jobs interrupted by the previous shutdown are failed so the queue
	// never carries phantom processing rows.
	logger.Info("Marking jobs interrupted by previous shutdown")
	if err := st.MarkInterruptedJobs(ctx); err != nil {
		logger.Errorf("Failed to mark interrupted jobs: %v", err)
		// Don't exit - continue with server startup
	}

	enc := encoder.NewFFmpeg()
	if !enc.Available() {
		logger.Warn("ffmpeg/ffprobe not found in PATH, transcode and analyze jobs will fail")
	}

	pipe := pipeline.New(st, enc, failures,
		config.GetJobBatchSize(), config.GetThumbnailCount(), config.GetThumbnailBaseDir())

	logger.Info("Starting job processing routine")
	go pipe.Run(ctx, time.Minute)

	engine := backup.NewEngine(st, storageback.New(), failures,
		config.GetBackupVerifyDelay(), config.GetMinBackupCopies(), config.GetBackupRetentionDays())
	engine.StartAutomaticBackupSystem(ctx)

	logger.Info("Starting cleanup routine (runs every 24 hours)")
	go cleanupRoutine(ctx, failures)

	logger.Info("Registering HTTP routes")
	handler := &routes.Handler{
		Store:    st,
		Pipeline: pipe,
		Engine:   engine,
		Failures: failures,
		Secret:   config.GetAdminSecret(),
	}
	handler.Register()
	logger.Info("HTTP routes registered successfully")

	addr := config.GetListenAddr()
	logger.Infof("Vidvault server starting on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}
}

// cleanupRoutine periodically prunes old failure records.
func cleanupRoutine(ctx context.Context, failures *faillog.Log) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
			maxAge := 30 * 24 * time.Hour
			logger.Debugf("Cleaning up failure records older than %v", maxAge)
			if err := failures.CleanupOldRecords(maxAge); err != nil {
				logger.Errorf("Failed to cleanup old failure records: %v", err)
			} else {
				logger.Info("Scheduled cleanup completed")
			}
		}
	}
}
