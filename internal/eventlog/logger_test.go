package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/intake"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	l, err := NewLogger(path, Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestTransitionType(t *testing.T) {
	tests := []struct {
		from, to capture.State
		want     EventType
	}{
		{capture.StateIdle, capture.StateRequesting, SessionRequested},
		{capture.StateRequesting, capture.StateRecording, SessionStarted},
		{capture.StateRecording, capture.StatePaused, SessionPaused},
		{capture.StatePaused, capture.StateRecording, SessionResumed},
		{capture.StatePaused, capture.StateStopped, SessionStopped},
		{capture.StateRequesting, capture.StateFailed, SessionFailed},
		{capture.StateRequesting, capture.StateIdle, SessionCancelled},
		{capture.StateStopped, capture.StateIdle, SessionReset},
		{capture.StateFailed, capture.StateIdle, SessionReset},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := TransitionType(tt.from, tt.to); got != tt.want {
				t.Errorf("TransitionType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogAndReadLast(t *testing.T) {
	l := newTestLogger(t)
	at := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	transitions := []capture.Transition{
		{Session: "s1", From: capture.StateIdle, To: capture.StateRequesting, At: at},
		{Session: "s1", From: capture.StateRequesting, To: capture.StateRecording, At: at.Add(time.Second)},
		{
			Session: "s1", From: capture.StateRecording, To: capture.StateStopped, Elapsed: 12,
			Artifact: &capture.ArtifactInfo{Size: 2048, ContentType: "audio/webm"}, At: at.Add(13 * time.Second),
		},
	}
	for _, tr := range transitions {
		if err := l.LogTransition(tr); err != nil {
			t.Fatalf("LogTransition() error = %v", err)
		}
	}
	l.ObserveSubmit(intake.SubmitEvent{
		ConsultationID: "c1",
		Err:            &intake.UploadError{Target: "consultation api", ConsultationID: "c1", StatusCode: 404, Err: errors.New("not found")},
	})
	l.ObserveSubmit(intake.SubmitEvent{
		ConsultationID: "c1",
		Receipt:        &intake.Receipt{ConsultationID: "c1", Filename: "symptoms.webm", Size: 2048},
	})

	events, more, err := ReadLast(l.Path(), 10, 0, FilterAll)
	if err != nil {
		t.Fatalf("ReadLast() error = %v", err)
	}
	if more {
		t.Error("more = true, want false")
	}
	wantTypes := []EventType{UploadCompleted, UploadFailed, SessionStopped, SessionStarted, SessionRequested}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("events[%d].Type = %q, want %q", i, events[i].Type, want)
		}
	}
	if events[2].SessionID != "s1" || !events[2].Timestamp.Equal(at.Add(13*time.Second)) {
		t.Errorf("stopped event = %+v", events[2])
	}

	details, ok := events[2].Details.(map[string]any)
	if !ok {
		t.Fatalf("details type = %T", events[2].Details)
	}
	if details["artifact_bytes"] != float64(2048) || details["elapsed_seconds"] != float64(12) {
		t.Errorf("stopped details = %v", details)
	}

	failed, _ := events[1].Details.(map[string]any)
	if failed["status_code"] != float64(404) {
		t.Errorf("upload failed details = %v", failed)
	}
}

func TestReadLastPagination(t *testing.T) {
	l := newTestLogger(t)
	for i := range 5 {
		if err := l.LogTransition(capture.Transition{Session: string(rune('a' + i)), From: capture.StateIdle, To: capture.StateRequesting}); err != nil {
			t.Fatal(err)
		}
		l.ObserveSubmit(intake.SubmitEvent{ConsultationID: "c"})
	}

	tests := []struct {
		name     string
		n        int
		offset   int
		filter   TypeFilter
		wantLen  int
		wantMore bool
		wantID   string
	}{
		{name: "first page", n: 2, filter: FilterCapture, wantLen: 2, wantMore: true, wantID: "e"},
		{name: "second page", n: 2, offset: 2, filter: FilterCapture, wantLen: 2, wantMore: true, wantID: "c"},
		{name: "last page", n: 2, offset: 4, filter: FilterCapture, wantLen: 1, wantID: "a"},
		{name: "exact fit", n: 5, filter: FilterCapture, wantLen: 5, wantID: "e"},
		{name: "uploads", n: 10, filter: FilterUpload, wantLen: 5},
		{name: "all", n: 10, filter: FilterAll, wantLen: 10},
		{name: "zero", n: 0, filter: FilterAll, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, more, err := ReadLast(l.Path(), tt.n, tt.offset, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != tt.wantLen || more != tt.wantMore {
				t.Fatalf("got %d events more=%v, want %d more=%v", len(events), more, tt.wantLen, tt.wantMore)
			}
			if tt.wantID != "" && events[0].SessionID != tt.wantID {
				t.Errorf("first session = %q, want %q", events[0].SessionID, tt.wantID)
			}
		})
	}
}

func TestReadLastMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	events, more, err := ReadLast(filepath.Join(dir, "missing.jsonl"), 10, 0, FilterAll)
	if err != nil || more || len(events) != 0 {
		t.Errorf("missing file: events=%v more=%v err=%v", events, more, err)
	}

	path := filepath.Join(dir, "events.jsonl")
	content := `{"ts":"2026-01-02T09:00:00Z","type":"session_started"}
not json
{"ts":"2026-01-02T09:00:01Z","type":"session_stopped"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	events, _, err = ReadLast(path, 10, 0, FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Type != SessionStopped {
		t.Errorf("events = %+v", events)
	}
}

func TestParseFilter(t *testing.T) {
	for _, s := range []string{"", "capture", "upload"} {
		if _, err := ParseFilter(s); err != nil {
			t.Errorf("ParseFilter(%q) error = %v", s, err)
		}
	}
	if _, err := ParseFilter("stream"); err == nil {
		t.Error("ParseFilter(stream) error = nil")
	}
}
