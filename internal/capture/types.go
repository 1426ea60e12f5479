// Package capture implements voice symptom capture: a recording session
// state machine that owns the microphone stream and encoder, an elapsed
// timer, a waveform sampler, and the controller that intake flows drive.
package capture

import (
	"bytes"
	"io"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
)

// State is the recording session state.
type State string

const (
	// StateIdle indicates no session and no hardware held.
	StateIdle State = "idle"
	// StateRequesting indicates microphone access has been requested.
	StateRequesting State = "requesting"
	// StateRecording indicates audio is being captured and encoded.
	StateRecording State = "recording"
	// StatePaused indicates the session holds the microphone but ignores its audio.
	StatePaused State = "paused"
	// StateStopped indicates a finished artifact is available.
	StateStopped State = "stopped"
	// StateFailed indicates acquisition or encoding failed.
	StateFailed State = "failed"
)

// Active reports whether the state holds hardware resources.
func (s State) Active() bool {
	return s == StateRequesting || s == StateRecording || s == StatePaused
}

// Reason is a named failure reason raised to the notification boundary.
// An interrupted recording that kept its audio carries one too.
type Reason string

const (
	ReasonPermissionDenied  Reason = "permission_denied"
	ReasonDeviceUnavailable Reason = "device_unavailable"
	ReasonEncoderError      Reason = "encoder_error"
)

// Artifact is the finished, immutable audio of one recording session.
type Artifact struct {
	data        []byte
	contentType string
	extension   string
	duration    int
	createdAt   time.Time
}

// NewArtifact creates an artifact holding a copy of data.
func NewArtifact(data []byte, contentType, extension string, duration int, createdAt time.Time) *Artifact {
	return &Artifact{
		data:        bytes.Clone(data),
		contentType: contentType,
		extension:   extension,
		duration:    duration,
		createdAt:   createdAt,
	}
}

// Bytes returns a copy of the encoded audio.
func (a *Artifact) Bytes() []byte {
	return bytes.Clone(a.data)
}

// Reader returns a reader over the encoded audio.
func (a *Artifact) Reader() io.Reader {
	return bytes.NewReader(a.data)
}

// Size returns the encoded size in bytes.
func (a *Artifact) Size() int {
	return len(a.data)
}

// ContentType returns the MIME type of the container (e.g. "audio/webm").
func (a *Artifact) ContentType() string {
	return a.contentType
}

// Extension returns the file extension of the container without a dot.
func (a *Artifact) Extension() string {
	return a.extension
}

// Duration returns the recorded duration in whole seconds.
func (a *Artifact) Duration() int {
	return a.duration
}

// CreatedAt returns when the artifact was finalized.
func (a *Artifact) CreatedAt() time.Time {
	return a.createdAt
}

// Info returns the artifact metadata for status reporting.
func (a *Artifact) Info() *ArtifactInfo {
	if a == nil {
		return nil
	}
	return &ArtifactInfo{
		Size:            len(a.data),
		ContentType:     a.contentType,
		Extension:       a.extension,
		DurationSeconds: a.duration,
	}
}

// ArtifactInfo describes an artifact without exposing its bytes.
type ArtifactInfo struct {
	Size            int    `json:"size"`
	ContentType     string `json:"content_type"`
	Extension       string `json:"extension"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Status is the observable state of a session, rendered by the caller's UI.
type Status struct {
	// Session identifies the current session lifetime, empty when idle.
	Session string `json:"session,omitempty"`
	// State is the current recording state.
	State State `json:"state"`
	// Reason is set when State is StateFailed, or StateStopped after an
	// interruption that kept the captured audio.
	Reason Reason `json:"reason,omitempty"`
	// Elapsed is the recorded time in seconds, excluding pauses.
	Elapsed int `json:"elapsed_seconds"`
	// Frame is the current waveform.
	Frame audio.Frame `json:"frame"`
	// Dimmed asks the UI to draw the held frame at reduced opacity.
	Dimmed bool `json:"dimmed,omitzero"`
	// LevelDB is the input RMS level in dBFS over the last sampler tick.
	LevelDB float64 `json:"level_db"`
	// Artifact describes the finished recording when State is StateStopped.
	Artifact *ArtifactInfo `json:"artifact,omitempty"`
}

// Transition describes one state change, reported to observers.
type Transition struct {
	Session  string
	From     State
	To       State
	Reason   Reason
	Err      error
	Elapsed  int
	Artifact *ArtifactInfo
	At       time.Time
}

// Notice is a failure raised to the notification boundary. The caller
// renders the user-facing text; Notice only names what went wrong.
type Notice struct {
	Session string
	Reason  Reason
	Err     error
	At      time.Time
}
