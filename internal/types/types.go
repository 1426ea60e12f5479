// Package types provides shared type definitions used across the capture service.
package types

import (
	"slices"
	"strconv"
	"time"
)

const (
	// ShutdownTimeout is the duration to wait for graceful shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
)

// Container represents an output container for recorded symptoms.
type Container string

// Supported containers.
const (
	ContainerWebM Container = "webm" // Opus in WebM
	ContainerOGG  Container = "ogg"  // Opus in Ogg
	ContainerMP3  Container = "mp3"  // MPEG Audio Layer III
	ContainerM4A  Container = "m4a"  // AAC in fragmented MP4
	ContainerWAV  Container = "wav"  // Uncompressed PCM, written natively
)

// ContainerPreset defines FFmpeg encoding parameters and upload metadata for a container.
type ContainerPreset struct {
	Args        []string // FFmpeg codec arguments
	Format      string   // FFmpeg output format
	ContentType string   // MIME type sent with uploads
	Extension   string   // File extension without dot
}

// ContainerPresets maps containers to their FFmpeg configuration.
var ContainerPresets = map[Container]ContainerPreset{
	ContainerWebM: {[]string{"libopus", "-b:a", "32k", "-application", "voip"}, "webm", "audio/webm", "webm"},
	ContainerOGG:  {[]string{"libopus", "-b:a", "32k", "-application", "voip"}, "ogg", "audio/ogg", "ogg"},
	ContainerMP3:  {[]string{"libmp3lame", "-b:a", "64k"}, "mp3", "audio/mpeg", "mp3"},
	ContainerM4A:  {[]string{"aac", "-b:a", "64k", "-movflags", "frag_keyframe+empty_moov"}, "mp4", "audio/mp4", "m4a"},
	ContainerWAV:  {[]string{"pcm_s16le"}, "wav", "audio/wav", "wav"},
}

// DefaultContainer is used when none is configured.
const DefaultContainer = ContainerWebM

// PresetFor returns the preset for a container, falling back to the default.
func PresetFor(c Container) ContainerPreset {
	if preset, ok := ContainerPresets[c]; ok {
		return preset
	}
	return ContainerPresets[DefaultContainer]
}

// WithBitrate returns a copy of the preset with the audio bitrate set to
// kbps. Presets without a bitrate argument are returned unchanged.
func (p ContainerPreset) WithBitrate(kbps int) ContainerPreset {
	if kbps <= 0 {
		return p
	}
	p.Args = slices.Clone(p.Args)
	for i := 0; i < len(p.Args)-1; i++ {
		if p.Args[i] == "-b:a" {
			p.Args[i+1] = strconv.Itoa(kbps) + "k"
		}
	}
	return p
}

// NeedsFFmpeg reports whether encoding this container requires FFmpeg.
func (c Container) NeedsFFmpeg() bool {
	return c != ContainerWAV
}

// UploadTarget determines where submitted symptoms are sent.
type UploadTarget string

// Supported upload targets.
const (
	UploadHTTP UploadTarget = "http" // Consultation API
	UploadS3   UploadTarget = "s3"   // S3-compatible bucket
)

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}

// SubmissionResult describes a completed symptom upload.
type SubmissionResult struct {
	ConsultationID string `json:"consultation_id"`      // Consultation the audio belongs to
	Location       string `json:"location,omitempty"`   // Where the audio was stored
	Filename       string `json:"filename,omitempty"`   // Uploaded file name
	SizeBytes      int    `json:"size_bytes,omitempty"` // Uploaded audio size
	HasNotes       bool   `json:"has_notes,omitzero"`   // Notes accompanied the upload
	AudioID        string `json:"audio_id,omitempty"`   // Identifier assigned by the backend
	SubmittedAt    string `json:"submitted_at"`         // RFC3339 timestamp
}
