// Package faillog archives terminal processing and verification failures in
// a Pebble store so operators can inspect them after the fact. Successful
// outcomes already live in the relational job rows; only failures need the
// extra detail kept here.
package faillog

import (
	"encoding/json"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

// Record is one archived failure.
type Record struct {
	JobID     string    `json:"job_id"`
	Stage     string    `json:"stage"` // "pipeline", "backup", "verify"
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Detail    string    `json:"detail"` // JSON snapshot of the failing unit
}

type Log struct {
	db *pebble.DB
}

// Open opens (or creates) the failure archive at dbPath.
func Open(dbPath string) (*Log, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open failure archive: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Record stores one failure keyed by job id; a later failure for the same
// job overwrites the earlier one.
func (l *Log) Record(jobID, stage string, failure error, detail interface{}) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		detailJSON = []byte(fmt.Sprintf(`"failed to marshal detail: %v"`, err))
	}

	rec := Record{
		JobID:     jobID,
		Stage:     stage,
		Timestamp: time.Now(),
		Error:     failure.Error(),
		Detail:    string(detailJSON),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}
	return l.db.Set([]byte(jobID), data, pebble.Sync)
}

// Get retrieves the failure for a job id; nil when the job has none.
func (l *Log) Get(jobID string) (*Record, error) {
	data, closer, err := l.db.Get([]byte(jobID))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read failure record: %w", err)
	}
	defer closer.Close()

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &rec, nil
}

// Delete removes one failure record.
func (l *Log) Delete(jobID string) error {
	return l.db.Delete([]byte(jobID), pebble.Sync)
}

// List returns every archived failure.
func (l *Log) List() ([]Record, error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var out []Record
	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip invalid records
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}
	return out, nil
}

// CleanupOldRecords removes failures older than maxAge.
func (l *Log) CleanupOldRecords(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	iter, err := l.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	var stale [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			stale = append(stale, key)
		}
	}

	for _, key := range stale {
		if err := l.db.Delete(key, pebble.Sync); err != nil {
			return fmt.Errorf("failed to delete old failure record: %w", err)
		}
	}
	return nil
}
