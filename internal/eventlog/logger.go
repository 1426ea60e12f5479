// Package eventlog records capture session and upload events in a JSON
// lines file rotated by size.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/intake"
)

// EventType represents the type of event.
type EventType string

// Capture event types.
const (
	SessionRequested EventType = "session_requested"
	SessionStarted   EventType = "session_started"
	SessionPaused    EventType = "session_paused"
	SessionResumed   EventType = "session_resumed"
	SessionStopped   EventType = "session_stopped"
	SessionFailed    EventType = "session_failed"
	SessionCancelled EventType = "session_cancelled"
	SessionReset     EventType = "session_reset"
)

// Upload event types.
const (
	UploadCompleted EventType = "upload_completed"
	UploadFailed    EventType = "upload_failed"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// CaptureDetails contains session transition details.
type CaptureDetails struct {
	From           capture.State  `json:"from"`
	To             capture.State  `json:"to"`
	Reason         capture.Reason `json:"reason,omitempty"`
	Error          string         `json:"error,omitempty"`
	ElapsedSeconds int            `json:"elapsed_seconds,omitempty"`
	ArtifactBytes  int            `json:"artifact_bytes,omitempty"`
	ContentType    string         `json:"content_type,omitempty"`
}

// UploadDetails contains submission details.
type UploadDetails struct {
	ConsultationID string `json:"consultation_id"`
	Location       string `json:"location,omitempty"`
	Filename       string `json:"filename,omitempty"`
	SizeBytes      int    `json:"size_bytes,omitempty"`
	HasNotes       bool   `json:"has_notes,omitempty"`
	StatusCode     int    `json:"status_code,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Rotation controls when the log file is rotated.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	writer   *lumberjack.Logger
	encoder  *json.Encoder
}

// DefaultLogPath returns the platform-specific log file path.
func DefaultLogPath(port int) string {
	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return filepath.Join(programData, "intake-agent", "logs", strconv.Itoa(port), "events.jsonl")
	default:
		//nolint:gocritic // Intentional absolute path for Unix systems
		return filepath.Join("/var/log/intake-agent", strconv.Itoa(port), "events.jsonl")
	}
}

// NewLogger creates an event logger at the specified path.
func NewLogger(filePath string, rot Rotation) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}

	return &Logger{
		filePath: filePath,
		writer:   writer,
		encoder:  json.NewEncoder(writer),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogTransition logs a session state change.
func (l *Logger) LogTransition(t capture.Transition) error {
	details := &CaptureDetails{
		From:           t.From,
		To:             t.To,
		Reason:         t.Reason,
		ElapsedSeconds: t.Elapsed,
	}
	if t.Err != nil {
		details.Error = t.Err.Error()
	}
	if t.Artifact != nil {
		details.ArtifactBytes = t.Artifact.Size
		details.ContentType = t.Artifact.ContentType
	}

	return l.Log(&Event{
		Timestamp: t.At,
		Type:      TransitionType(t.From, t.To),
		SessionID: t.Session,
		Details:   details,
	})
}

// LogSubmit logs the outcome of an upload.
func (l *Logger) LogSubmit(e intake.SubmitEvent) error {
	details := &UploadDetails{ConsultationID: e.ConsultationID}
	eventType := UploadCompleted
	if e.Err != nil {
		eventType = UploadFailed
		details.Error = e.Err.Error()
		var uploadErr *intake.UploadError
		if errors.As(e.Err, &uploadErr) {
			details.StatusCode = uploadErr.StatusCode
		}
	}
	if r := e.Receipt; r != nil {
		details.Location = r.Location
		details.Filename = r.Filename
		details.SizeBytes = r.Size
		details.HasNotes = r.HasNotes
	}

	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details:   details,
	})
}

// ObserveTransition is a capture observer that logs write failures.
func (l *Logger) ObserveTransition(t capture.Transition) {
	if err := l.LogTransition(t); err != nil {
		slog.Warn("failed to write event log", "type", "transition", "error", err)
	}
}

// ObserveSubmit is a submit observer that logs write failures.
func (l *Logger) ObserveSubmit(e intake.SubmitEvent) {
	if err := l.LogSubmit(e); err != nil {
		slog.Warn("failed to write event log", "type", "upload", "error", err)
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer.Close()
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TransitionType maps a state change to its event type.
func TransitionType(from, to capture.State) EventType {
	switch to {
	case capture.StateRequesting:
		return SessionRequested
	case capture.StateRecording:
		if from == capture.StatePaused {
			return SessionResumed
		}
		return SessionStarted
	case capture.StatePaused:
		return SessionPaused
	case capture.StateStopped:
		return SessionStopped
	case capture.StateFailed:
		return SessionFailed
	default:
		if from == capture.StateRequesting {
			return SessionCancelled
		}
		return SessionReset
	}
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll     TypeFilter = ""
	FilterCapture TypeFilter = "capture"
	FilterUpload  TypeFilter = "upload"
)

// ParseFilter validates a filter name from a request.
func ParseFilter(s string) (TypeFilter, error) {
	switch f := TypeFilter(s); f {
	case FilterAll, FilterCapture, FilterUpload:
		return f, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q", s)
	}
}

// Matches reports whether t passes the filter.
func (f TypeFilter) Matches(t EventType) bool {
	switch f {
	case FilterCapture:
		return IsCaptureEvent(t)
	case FilterUpload:
		return IsUploadEvent(t)
	default:
		return true
	}
}

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// ReadLast reads events from the log file with pagination support.
// Returns up to n events starting from offset, filtered by type, newest
// first, and whether older matching events remain.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	n = min(n, MaxReadLimit)
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines [][]byte
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal(lines[i], &event); err != nil {
			continue // Skip malformed lines
		}
		if !filter.Matches(event.Type) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(events) == n {
			return events, true, nil
		}
		events = append(events, event)
	}

	return events, false, nil
}

// IsCaptureEvent returns true if the event type is a session event.
func IsCaptureEvent(t EventType) bool {
	switch t {
	case SessionRequested, SessionStarted, SessionPaused, SessionResumed,
		SessionStopped, SessionFailed, SessionCancelled, SessionReset:
		return true
	}
	return false
}

// IsUploadEvent returns true if the event type is an upload event.
func IsUploadEvent(t EventType) bool {
	return t == UploadCompleted || t == UploadFailed
}
