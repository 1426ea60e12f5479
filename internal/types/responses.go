package types

import (
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

// WSCommandResult is the standard response for command execution.
type WSCommandResult struct {
	Type    string `json:"type"`             // "<command>_result"
	ID      string `json:"id,omitempty"`     // Echoes the command ID
	Success bool   `json:"success"`          // true if command succeeded
	Error   any    `json:"error,omitempty"`  // Message or *ValidationError if failed
	Reason  string `json:"reason,omitempty"` // Capture failure reason, if any
	Data    any    `json:"data,omitempty"`   // Optional response data
}

// WSStatusResponse is sent to clients on connect and on every capture update.
type WSStatusResponse struct {
	Type            string         `json:"type"`             // "status"
	FFmpegAvailable bool           `json:"ffmpeg_available"` // FFmpeg binary is available
	Capture         capture.Status `json:"capture"`          // Capture session status
	Container       Container      `json:"container"`        // Configured output container
	UploadMode      string         `json:"upload_mode"`      // none, http or s3
	AudioInput      string         `json:"audio_input"`      // Selected input device
	Devices         []audio.Device `json:"devices"`          // Available audio devices
	Version         VersionInfo    `json:"version"`          // Version information
}

// EventsResult carries a page of event log entries.
type EventsResult struct {
	Type    string `json:"type"`              // "events/get_result"
	Success bool   `json:"success"`           // Operation succeeded
	Error   string `json:"error,omitempty"`   // Error message if failed
	Entries any    `json:"entries,omitempty"` // Log entries, newest first
	HasMore bool   `json:"has_more"`          // Older entries remain
}

// WSNoticeResponse tells clients why a recording failed.
type WSNoticeResponse struct {
	Type      string `json:"type"`            // "notice"
	Session   string `json:"session"`         // Session that failed
	Reason    string `json:"reason"`          // Failure reason
	Message   string `json:"message"`         // Text to show the user
	Error     string `json:"error,omitempty"` // Underlying error
	Timestamp string `json:"timestamp"`       // RFC3339 timestamp
}
