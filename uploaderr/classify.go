// Package uploaderr maps raw upload failures onto a closed taxonomy with
// fixed retryability flags. Classification is a pure total function; callers
// that want the record logged use LogClassified.
package uploaderr

import (
	"strings"

	"vidvault/logger"
)

type Kind string

const (
	KindSessionExpired    Kind = "session_expired"
	KindChunkFailed       Kind = "chunk_failed"
	KindNetworkError      Kind = "network_error"
	KindStorageFull       Kind = "storage_full"
	KindFileTooLarge      Kind = "file_too_large"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindUnknown           Kind = "unknown"
)

// ClassifiedError is one classified upload failure. ChunkNumber is -1 when
// the failure is not tied to a chunk.
type ClassifiedError struct {
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	Retryable   bool   `json:"retryable"`
	ChunkNumber int    `json:"chunk_number,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

func (e *ClassifiedError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// matcher rules are checked in order; the first hit wins. storage_full,
// file_too_large and unsupported_format are terminal, everything else retries.
var matchers = []struct {
	kind      Kind
	retryable bool
	needles   []string
}{
	{KindSessionExpired, true, []string{"session expired", "session is expired", "session invalid", "invalid session", "session not found"}},
	{KindStorageFull, false, []string{"storage full", "no space", "disk full", "quota exceeded", "insufficient storage"}},
	{KindFileTooLarge, false, []string{"too large", "file size exceeds", "exceeds maximum size", "payload too large"}},
	{KindUnsupportedFormat, false, []string{"unsupported format", "invalid format", "unsupported codec", "unknown format", "not supported"}},
	{KindNetworkError, true, []string{"network", "connection", "timeout", "timed out", "unreachable", "broken pipe", "reset by peer", "eof"}},
	{KindChunkFailed, true, []string{"chunk", "part upload", "segment failed"}},
}

// Classify turns a raw failure into a taxonomy record. It never panics and
// always returns a record; nil errors classify as unknown.
func Classify(raw error, chunkNumber int, sessionID string) *ClassifiedError {
	msg := ""
	if raw != nil {
		msg = raw.Error()
	}
	lower := strings.ToLower(msg)

	for _, m := range matchers {
		for _, needle := range m.needles {
			if strings.Contains(lower, needle) {
				return &ClassifiedError{
					Kind:        m.kind,
					Message:     msg,
					Retryable:   m.retryable,
					ChunkNumber: chunkNumber,
					SessionID:   sessionID,
				}
			}
		}
	}

	return &ClassifiedError{
		Kind:        KindUnknown,
		Message:     msg,
		Retryable:   true,
		ChunkNumber: chunkNumber,
		SessionID:   sessionID,
	}
}

// RemediationHint returns the user-facing action hint for a terminal failure,
// or a retrying notice for a retryable one.
func (e *ClassifiedError) RemediationHint() string {
	switch e.Kind {
	case KindStorageFull:
		return "storage is full, contact support"
	case KindFileTooLarge:
		return "reduce the file size and upload again"
	case KindUnsupportedFormat:
		return "convert the file to a supported format"
	default:
		return "upload will be retried automatically"
	}
}

// LogClassified records the classified failure for observability.
func LogClassified(e *ClassifiedError) {
	if e == nil {
		return
	}
	if e.Retryable {
		logger.Warnf("upload error [%s] session=%s chunk=%d: %s", e.Kind, e.SessionID, e.ChunkNumber, e.Message)
		return
	}
	logger.Errorf("terminal upload error [%s] session=%s chunk=%d: %s", e.Kind, e.SessionID, e.ChunkNumber, e.Message)
}
