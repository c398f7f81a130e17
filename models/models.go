package models

import "time"

// JobKind identifies one unit of asynchronous processing work.
type JobKind string

const (
	JobTranscode JobKind = "transcode"
	JobThumbnail JobKind = "thumbnail"
	JobAnalyze   JobKind = "analyze"
)

// JobStatus values form a state machine:
// pending -> processing -> completed, or pending/processing -> failed.
// completed and failed are terminal.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ContentAsset is one ingested source video.
type ContentAsset struct {
	ID              string
	Title           string
	FilePath        string
	ServerID        string
	DurationSeconds float64
	CreatedAt       time.Time
}

// ProcessingJob is one queued transcode/thumbnail/analyze unit.
// Rows are never deleted; they form the audit trail.
type ProcessingJob struct {
	ID           string
	AssetID      string
	Kind         JobKind
	Quality      string // transcode only
	ServerID     string // target storage server
	Status       JobStatus
	Progress     int // 0..100
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// QualityRendition is one transcoded output at a quality tier.
type QualityRendition struct {
	ID        string
	AssetID   string
	Quality   string
	FilePath  string
	ServerID  string
	SizeBytes int64
	Bitrate   int
	Codec     string
	Ready     bool
	CreatedAt time.Time
}

// Backup creation origins.
const (
	CreationAuto   = "auto"
	CreationManual = "manual"
)

// BackupRecord is one physical replica of a rendition. It is a weak
// back-reference: deleting the rendition does not cascade here.
type BackupRecord struct {
	ID           string
	RenditionID  string
	ServerID     string
	Path         string
	SizeBytes    int64
	Checksum     string
	Verified     bool
	VerifyNote   string
	CreationType string // "auto" or "manual"
	CreatedAt    time.Time
	VerifiedAt   *time.Time
}

// BackupPolicy is a named replication rule driving the reconciliation loop.
type BackupPolicy struct {
	ID            string
	Name          string
	Active        bool
	FrequencyHrs  int
	RetentionDays int
	MinCopies     int
	ServerIDs     []string // eligible backup servers
	QualityFilter string   // empty matches every quality
	CreatedAt     time.Time
}

// StorageServer is one storage target. Access holds backend credentials
// (bucket, region, keys, host...) specific to Kind.
type StorageServer struct {
	ID            string
	Name          string
	Kind          string // "local", "s3", "gcs", "sftp"
	StorageRoot   string
	Priority      int
	Active        bool
	CapacityBytes int64
	UsedBytes     int64
	Access        map[string]string
}

// ActivityEntry is one row of the operator-visible activity log.
type ActivityEntry struct {
	ID        string
	Action    string
	TargetID  string
	Detail    string
	CreatedAt time.Time
}

// VideoMetadata is the result of probing a source file.
type VideoMetadata struct {
	DurationSeconds float64
	Width           int
	Height          int
	Bitrate         int
	FrameRate       float64
	VideoCodec      string
	AudioCodec      string
	AudioChannels   int
	SizeBytes       int64
	AspectRatio     string
}
