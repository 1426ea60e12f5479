// Package intake packages a finished recording with typed notes and hands
// it to an upload destination.
package intake

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

// MaxNotesLength is the maximum number of characters in typed notes.
const MaxNotesLength = 5000

// Payload errors.
var (
	ErrEmptyPayload  = errors.New("payload has neither audio nor notes")
	ErrNotesTooLong  = fmt.Errorf("notes exceed %d characters", MaxNotesLength)
	ErrEmptyArtifact = errors.New("artifact has no audio")
)

// Payload is what the intake form submits: optional audio and optional notes.
type Payload struct {
	artifact *capture.Artifact
	notes    string
}

// NewPayload builds a payload. Notes are trimmed; either part may be
// absent but not both.
func NewPayload(artifact *capture.Artifact, notes string) (*Payload, error) {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, ErrNotesTooLong
	}
	if artifact != nil && artifact.Size() == 0 {
		return nil, ErrEmptyArtifact
	}
	if artifact == nil && notes == "" {
		return nil, ErrEmptyPayload
	}
	return &Payload{artifact: artifact, notes: notes}, nil
}

// Artifact returns the recording, or nil.
func (p *Payload) Artifact() *capture.Artifact {
	return p.artifact
}

// Notes returns the trimmed notes, possibly empty.
func (p *Payload) Notes() string {
	return p.notes
}

// HasAudio reports whether the payload carries a recording.
func (p *Payload) HasAudio() bool {
	return p.artifact != nil
}

// HasNotes reports whether the payload carries notes.
func (p *Payload) HasNotes() bool {
	return p.notes != ""
}

// Filename returns the upload file name for the recording, or "" without audio.
func (p *Payload) Filename() string {
	if p.artifact == nil {
		return ""
	}
	return ArtifactFilename(p.artifact)
}

// ArtifactFilename names a recording for upload or download.
func ArtifactFilename(a *capture.Artifact) string {
	return "symptoms." + a.Extension()
}
