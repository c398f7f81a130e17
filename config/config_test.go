package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDataDirDefault(t *testing.T) {
	t.Setenv("VIDVAULT_DATA_DIR", "")
	if got := GetDataDir(); got != "./data" {
		t.Errorf("expected default ./data, got %s", got)
	}
}

func TestDataDirOverride(t *testing.T) {
	t.Setenv("VIDVAULT_DATA_DIR", "/srv/vidvault")
	if got := GetDataDir(); got != "/srv/vidvault" {
		t.Errorf("expected /srv/vidvault, got %s", got)
	}
	if got := GetDatabasePath(); got != filepath.Join("/srv/vidvault", "vidvault.db") {
		t.Errorf("database path not derived from data dir: %s", got)
	}
	if got := GetFailureLogPath(); got != filepath.Join("/srv/vidvault", "failures.db") {
		t.Errorf("failure log path not derived from data dir: %s", got)
	}
}

func TestListenAddr(t *testing.T) {
	t.Setenv("VIDVAULT_LISTEN_ADDR", "")
	if got := GetListenAddr(); got != ":8080" {
		t.Errorf("expected :8080, got %s", got)
	}
	t.Setenv("VIDVAULT_LISTEN_ADDR", "127.0.0.1:9000")
	if got := GetListenAddr(); got != "127.0.0.1:9000" {
		t.Errorf("expected override, got %s", got)
	}
}

func TestRetryDefaults(t *testing.T) {
	t.Setenv("VIDVAULT_MAX_CHUNK_RETRIES", "")
	t.Setenv("VIDVAULT_RETRY_BASE_MS", "")
	t.Setenv("VIDVAULT_RETRY_MAX_MS", "")

	if got := GetMaxChunkRetries(); got != 3 {
		t.Errorf("expected 3 retries, got %d", got)
	}
	if got := GetRetryBaseDelay(); got != time.Second {
		t.Errorf("expected 1s base delay, got %v", got)
	}
	if got := GetRetryMaxDelay(); got != 30*time.Second {
		t.Errorf("expected 30s max delay, got %v", got)
	}
}

func TestIntOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("VIDVAULT_JOB_BATCH", "25")
	if got := GetJobBatchSize(); got != 25 {
		t.Errorf("expected 25, got %d", got)
	}
	t.Setenv("VIDVAULT_JOB_BATCH", "not-a-number")
	if got := GetJobBatchSize(); got != 10 {
		t.Errorf("garbage must fall back to default, got %d", got)
	}
	t.Setenv("VIDVAULT_JOB_BATCH", "-5")
	if got := GetJobBatchSize(); got != 10 {
		t.Errorf("negative must fall back to default, got %d", got)
	}
}

func TestBackupSettings(t *testing.T) {
	t.Setenv("VIDVAULT_VERIFY_DELAY_HOURS", "")
	t.Setenv("VIDVAULT_RETENTION_DAYS", "")
	t.Setenv("VIDVAULT_MIN_COPIES", "")

	if got := GetBackupVerifyDelay(); got != 24*time.Hour {
		t.Errorf("expected 24h verify delay, got %v", got)
	}
	if got := GetBackupRetentionDays(); got != 90 {
		t.Errorf("expected 90 day retention, got %d", got)
	}
	if got := GetMinBackupCopies(); got != 2 {
		t.Errorf("expected 2 minimum copies, got %d", got)
	}
}
