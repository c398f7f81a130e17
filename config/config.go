package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory if one exists.
// Missing files are not an error; explicit environment variables always win.
func LoadEnv() {
	_ = godotenv.Load()
}

// GetDataDir returns the directory where Vidvault stores its data.
// Priority: VIDVAULT_DATA_DIR environment variable > "./data" default.
// Checked at call time so the value can change between restarts.
func GetDataDir() string {
	if dir := os.Getenv("VIDVAULT_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDatabasePath returns the full path to the relational store.
// Path: {DATA_DIR}/vidvault.db
func GetDatabasePath() string {
	return filepath.Join(GetDataDir(), "vidvault.db")
}

// GetFailureLogPath returns the full path to the failure archive database.
// Path: {DATA_DIR}/failures.db
func GetFailureLogPath() string {
	return filepath.Join(GetDataDir(), "failures.db")
}

// GetThumbnailBaseDir returns the directory thumbnail stills are written to.
// Configurable via VIDVAULT_THUMB_DIR for server administrators.
func GetThumbnailBaseDir() string {
	if dir := os.Getenv("VIDVAULT_THUMB_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(GetDataDir(), "thumbnails")
}

// GetListenAddr returns the HTTP listen address.
func GetListenAddr() string {
	if addr := os.Getenv("VIDVAULT_LISTEN_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// GetAdminSecret returns the shared HMAC secret for admin tokens.
func GetAdminSecret() []byte {
	return []byte(os.Getenv("VIDVAULT_ADMIN_SECRET"))
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// GetMaxChunkRetries returns the per-chunk retry ceiling for uploads.
func GetMaxChunkRetries() int {
	return envInt("VIDVAULT_MAX_CHUNK_RETRIES", 3)
}

// GetRetryBaseDelay returns the base delay for upload retry backoff.
func GetRetryBaseDelay() time.Duration {
	return time.Duration(envInt("VIDVAULT_RETRY_BASE_MS", 1000)) * time.Millisecond
}

// GetRetryMaxDelay returns the backoff cap for upload retries.
func GetRetryMaxDelay() time.Duration {
	return time.Duration(envInt("VIDVAULT_RETRY_MAX_MS", 30000)) * time.Millisecond
}

// GetJobBatchSize returns how many pending jobs one queue pass may claim.
func GetJobBatchSize() int {
	return envInt("VIDVAULT_JOB_BATCH", 10)
}

// GetThumbnailCount returns how many stills are extracted per source video.
func GetThumbnailCount() int {
	return envInt("VIDVAULT_THUMB_COUNT", 5)
}

// GetBackupVerifyDelay returns how long after creation a backup is
// independently re-checked.
func GetBackupVerifyDelay() time.Duration {
	return time.Duration(envInt("VIDVAULT_VERIFY_DELAY_HOURS", 24)) * time.Hour
}

// GetBackupRetentionDays returns the retention window for the daily cleanup.
func GetBackupRetentionDays() int {
	return envInt("VIDVAULT_RETENTION_DAYS", 90)
}

// GetMinBackupCopies returns the copy floor the retention cleanup must never
// drop a rendition below.
func GetMinBackupCopies() int {
	return envInt("VIDVAULT_MIN_COPIES", 2)
}
