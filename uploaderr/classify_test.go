package uploaderr

import (
	"errors"
	"testing"
)

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		message   string
		kind      Kind
		retryable bool
	}{
		{"session expired, please re-authenticate", KindSessionExpired, true},
		{"Invalid session token", KindSessionExpired, true},
		{"session not found", KindSessionExpired, true},
		{"disk full on target volume", KindStorageFull, false},
		{"quota exceeded for tenant", KindStorageFull, false},
		{"file size exceeds limit", KindFileTooLarge, false},
		{"413 Payload Too Large", KindFileTooLarge, false},
		{"unsupported format: wmv", KindUnsupportedFormat, false},
		{"codec not supported", KindUnsupportedFormat, false},
		{"connection reset by peer", KindNetworkError, true},
		{"request timed out", KindNetworkError, true},
		{"unexpected EOF", KindNetworkError, true},
		{"chunk 7 rejected by server", KindChunkFailed, true},
		{"segment failed checksum", KindChunkFailed, true},
		{"something completely else", KindUnknown, true},
	}

	for _, tc := range cases {
		got := Classify(errors.New(tc.message), 3, "sess-1")
		if got.Kind != tc.kind {
			t.Errorf("Classify(%q): expected kind %s, got %s", tc.message, tc.kind, got.Kind)
		}
		if got.Retryable != tc.retryable {
			t.Errorf("Classify(%q): expected retryable=%v, got %v", tc.message, tc.retryable, got.Retryable)
		}
		if got.Message != tc.message {
			t.Errorf("Classify(%q): message not preserved, got %q", tc.message, got.Message)
		}
	}
}

func TestClassifyOrderSessionBeforeNetwork(t *testing.T) {
	// A message matching both session and network rules must classify as
	// session expired, because session refresh is the cheaper recovery.
	got := Classify(errors.New("session expired: connection dropped"), 0, "s")
	if got.Kind != KindSessionExpired {
		t.Errorf("expected session_expired to win over network_error, got %s", got.Kind)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	got := Classify(errors.New("CONNECTION REFUSED by upstream"), 0, "s")
	if got.Kind != KindNetworkError {
		t.Errorf("expected network_error for uppercase message, got %s", got.Kind)
	}
}

func TestClassifyNilError(t *testing.T) {
	got := Classify(nil, -1, "")
	if got == nil {
		t.Fatal("Classify must never return nil")
	}
	if got.Kind != KindUnknown {
		t.Errorf("expected unknown for nil error, got %s", got.Kind)
	}
	if !got.Retryable {
		t.Error("unknown failures must stay retryable")
	}
	if got.ChunkNumber != -1 {
		t.Errorf("chunk number not preserved, got %d", got.ChunkNumber)
	}
}

func TestClassifyCarriesContext(t *testing.T) {
	got := Classify(errors.New("chunk upload failed"), 12, "sess-42")
	if got.ChunkNumber != 12 || got.SessionID != "sess-42" {
		t.Errorf("context not carried: chunk=%d session=%s", got.ChunkNumber, got.SessionID)
	}
}

func TestErrorString(t *testing.T) {
	e := Classify(errors.New("disk full"), 0, "s")
	want := "storage_full: disk full"
	if e.Error() != want {
		t.Errorf("expected %q, got %q", want, e.Error())
	}
}

func TestRemediationHint(t *testing.T) {
	cases := map[Kind]string{
		KindStorageFull:       "storage is full, contact support",
		KindFileTooLarge:      "reduce the file size and upload again",
		KindUnsupportedFormat: "convert the file to a supported format",
		KindNetworkError:      "upload will be retried automatically",
		KindUnknown:           "upload will be retried automatically",
	}
	for kind, want := range cases {
		e := &ClassifiedError{Kind: kind}
		if got := e.RemediationHint(); got != want {
			t.Errorf("hint for %s: expected %q, got %q", kind, want, got)
		}
	}
}
