// Package retry supervises chunked uploads: per-chunk attempt counting,
// kind-dependent backoff, resume-point discovery and session validation.
// One Manager belongs to exactly one upload session; construct a new one per
// session instead of sharing an instance across sessions.
package retry

import (
	"context"
	"sync"
	"time"

	"vidvault/config"
	"vidvault/logger"
	"vidvault/uploaderr"
)

// Uploader is the external upload session orchestrator boundary.
type Uploader interface {
	UploadChunk(ctx context.Context, sessionID string, chunkIndex int, data []byte, onProgress func(float64)) (bool, error)
	ResumeUpload(ctx context.Context, sessionID string) (int, error)
	ValidateAndRefreshSession(ctx context.Context, sessionID string) error
}

type BackoffMode int

const (
	BackoffExponential BackoffMode = iota
	BackoffLinear
)

type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Mode       BackoffMode
}

// DefaultConfig builds a Config from the VIDVAULT_* retry settings. Upload
// orchestrators construct their per-session managers from this.
func DefaultConfig() Config {
	return Config{
		MaxRetries: config.GetMaxChunkRetries(),
		BaseDelay:  config.GetRetryBaseDelay(),
		MaxDelay:   config.GetRetryMaxDelay(),
	}
}

// Result reports the outcome of one supervised chunk transfer attempt.
type Result struct {
	Success     bool
	Err         *uploaderr.ClassifiedError
	ShouldRetry bool
	RetryAfter  time.Duration
}

// Stats aggregates the retry history of the session.
type Stats struct {
	TotalRetries      int
	ChunksWithRetries int
	AverageRetries    float64
}

type Manager struct {
	uploader Uploader
	cfg      Config

	mu       sync.Mutex
	attempts map[int]int // live per-chunk counters, cleared on success or terminal failure
	history  map[int]int // cumulative retries per chunk, kept for stats
}

func NewManager(uploader Uploader, cfg Config) *Manager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &Manager{
		uploader: uploader,
		cfg:      cfg,
		attempts: make(map[int]int),
		history:  make(map[int]int),
	}
}

// retryableKinds gates which taxonomy kinds the manager will retry at all.
var retryableKinds = map[uploaderr.Kind]bool{
	uploaderr.KindSessionExpired: true,
	uploaderr.KindChunkFailed:    true,
	uploaderr.KindNetworkError:   true,
}

// UploadChunkWithRetry performs one transfer attempt for the chunk and
// decides what the caller should do next. On a retry-eligible failure the
// attempt counter is advanced and RetryAfter carries the computed delay; on
// success or a terminal failure the counter is cleared.
func (m *Manager) UploadChunkWithRetry(ctx context.Context, sessionID string, chunkIndex int, data []byte, onProgress func(float64)) Result {
	ok, err := m.uploader.UploadChunk(ctx, sessionID, chunkIndex, data, onProgress)
	if ok && err == nil {
		m.mu.Lock()
		delete(m.attempts, chunkIndex)
		m.mu.Unlock()
		return Result{Success: true}
	}

	classified := uploaderr.Classify(err, chunkIndex, sessionID)
	uploaderr.LogClassified(classified)

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.attempts[chunkIndex]
	eligible := classified.Retryable && current < m.cfg.MaxRetries && retryableKinds[classified.Kind]
	if !eligible {
		delete(m.attempts, chunkIndex)
		return Result{Err: classified}
	}

	attempt := current + 1
	m.attempts[chunkIndex] = attempt
	m.history[chunkIndex]++

	return Result{
		Err:         classified,
		ShouldRetry: true,
		RetryAfter:  m.delayFor(classified.Kind, attempt),
	}
}

// delayFor computes the backoff for a given attempt (1-based). The error
// kind picks the base curve; the manager's mode applies its own multiplier
// on top, capped at MaxDelay.
func (m *Manager) delayFor(kind uploaderr.Kind, attempt int) time.Duration {
	base := m.cfg.BaseDelay

	var delay time.Duration
	switch kind {
	case uploaderr.KindSessionExpired:
		// session refresh recovers fast, no escalation
		delay = base
	case uploaderr.KindChunkFailed:
		delay = base << uint(attempt)
	case uploaderr.KindNetworkError:
		delay = base * time.Duration(attempt+1) * 2
	default:
		delay = base << uint(attempt)
	}

	switch m.cfg.Mode {
	case BackoffLinear:
		delay = base * time.Duration(attempt)
	default:
		if attempt > 1 {
			delay <<= uint(attempt - 1)
		}
	}

	if delay > m.cfg.MaxDelay || delay <= 0 {
		delay = m.cfg.MaxDelay
	}
	return delay
}

// RetryDelay exposes the delay curve for a kind and attempt count.
func (m *Manager) RetryDelay(kind uploaderr.Kind, attempt int) time.Duration {
	return m.delayFor(kind, attempt)
}

// FindResumePoint asks the orchestrator for the last durably received chunk.
// On any query failure it returns 0: restarting from the beginning is safe,
// skipping a gap is not.
func (m *Manager) FindResumePoint(ctx context.Context, sessionID string, totalChunks int) int {
	last, err := m.uploader.ResumeUpload(ctx, sessionID)
	if err != nil {
		logger.Warnf("resume point query failed for session %s, restarting from 0: %v", sessionID, err)
		return 0
	}
	if last < 0 {
		return 0
	}
	if last > totalChunks {
		return totalChunks
	}
	return last
}

// ValidateSession reports whether the session is still usable.
func (m *Manager) ValidateSession(ctx context.Context, sessionID string) bool {
	if err := m.uploader.ValidateAndRefreshSession(ctx, sessionID); err != nil {
		logger.Debugf("session %s failed validation: %v", sessionID, err)
		return false
	}
	return true
}

// RetryCount returns the live attempt counter for a chunk.
func (m *Manager) RetryCount(chunkIndex int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[chunkIndex]
}

// ExceededMaxRetries reports whether the chunk has used up its attempts.
func (m *Manager) ExceededMaxRetries(chunkIndex int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[chunkIndex] >= m.cfg.MaxRetries
}

// PendingChunks returns how many chunks currently hold a live retry counter.
func (m *Manager) PendingChunks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

// Stats summarizes the session's retry history, including chunks whose
// counters were since cleared by success.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	for _, n := range m.history {
		s.TotalRetries += n
		s.ChunksWithRetries++
	}
	if s.ChunksWithRetries > 0 {
		s.AverageRetries = float64(s.TotalRetries) / float64(s.ChunksWithRetries)
	}
	return s
}
