package intake

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

func testArtifact(data string) *capture.Artifact {
	return capture.NewArtifact([]byte(data), "audio/webm", "webm", 4, time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC))
}

func TestNewPayload(t *testing.T) {
	tests := []struct {
		name      string
		artifact  *capture.Artifact
		notes     string
		wantErr   error
		wantNotes string
		wantAudio bool
	}{
		{name: "audio only", artifact: testArtifact("abc"), wantAudio: true},
		{name: "notes only", notes: "  cough for three days \n", wantNotes: "cough for three days"},
		{name: "both", artifact: testArtifact("abc"), notes: "fever", wantNotes: "fever", wantAudio: true},
		{name: "neither", wantErr: ErrEmptyPayload},
		{name: "whitespace notes", notes: " \t\n ", wantErr: ErrEmptyPayload},
		{name: "empty artifact", artifact: testArtifact(""), wantErr: ErrEmptyArtifact},
		{name: "notes at limit", notes: strings.Repeat("é", MaxNotesLength), wantNotes: strings.Repeat("é", MaxNotesLength)},
		{name: "notes over limit", notes: strings.Repeat("a", MaxNotesLength+1), wantErr: ErrNotesTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPayload(tt.artifact, tt.notes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewPayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPayload() error = %v", err)
			}
			if p.Notes() != tt.wantNotes {
				t.Errorf("Notes() = %q, want %q", p.Notes(), tt.wantNotes)
			}
			if p.HasAudio() != tt.wantAudio {
				t.Errorf("HasAudio() = %v, want %v", p.HasAudio(), tt.wantAudio)
			}
			if p.HasNotes() != (tt.wantNotes != "") {
				t.Errorf("HasNotes() = %v", p.HasNotes())
			}
		})
	}
}

func TestPayloadFilename(t *testing.T) {
	p, err := NewPayload(capture.NewArtifact([]byte{1}, "audio/wav", "wav", 1, time.Now()), "")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Filename(); got != "symptoms.wav" {
		t.Errorf("Filename() = %q, want symptoms.wav", got)
	}

	p, err = NewPayload(nil, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Filename(); got != "" {
		t.Errorf("Filename() without audio = %q, want empty", got)
	}
}
