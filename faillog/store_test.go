package faillog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "failures.db"))
	if err != nil {
		t.Fatalf("Failed to open failure archive: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestFailureArchive(t *testing.T) {
	l := openTestLog(t)

	jobID := "job-123"
	failure := errors.New("transcode to 720p failed: encoder exited with status 1")
	detail := map[string]interface{}{
		"asset":   "asset-1",
		"quality": "720p",
	}

	if err := l.Record(jobID, "pipeline", failure, detail); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}

	rec, err := l.Get(jobID)
	if err != nil {
		t.Fatalf("Failed to get failure: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected failure record, got nil")
	}
	if rec.JobID != jobID {
		t.Errorf("Expected job id %s, got %s", jobID, rec.JobID)
	}
	if rec.Stage != "pipeline" {
		t.Errorf("Expected stage pipeline, got %s", rec.Stage)
	}
	if rec.Error != failure.Error() {
		t.Errorf("Expected error %q, got %q", failure.Error(), rec.Error)
	}
	if time.Since(rec.Timestamp) > time.Minute {
		t.Error("Timestamp should be recent")
	}

	missing, err := l.Get("non-existent-job")
	if err != nil {
		t.Fatalf("Failed to get non-existent failure: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for non-existent failure")
	}

	if err := l.Delete(jobID); err != nil {
		t.Fatalf("Failed to delete failure: %v", err)
	}
	deleted, err := l.Get(jobID)
	if err != nil {
		t.Fatalf("Failed to check deleted failure: %v", err)
	}
	if deleted != nil {
		t.Error("Expected nil after deletion")
	}
}

func TestFailureOverwrite(t *testing.T) {
	l := openTestLog(t)

	if err := l.Record("job-1", "pipeline", errors.New("first failure"), nil); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if err := l.Record("job-1", "verify", errors.New("second failure"), nil); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}

	rec, err := l.Get("job-1")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if rec.Error != "second failure" || rec.Stage != "verify" {
		t.Errorf("later record must overwrite the earlier one: %+v", rec)
	}
}

func TestFailureList(t *testing.T) {
	l := openTestLog(t)

	for _, id := range []string{"job-a", "job-b", "job-c"} {
		if err := l.Record(id, "backup", errors.New("replication failed"), nil); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
	}

	records, err := l.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}
