package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

type staticSource struct {
	artifact *capture.Artifact
}

func (s staticSource) Artifact() *capture.Artifact {
	return s.artifact
}

type fakeUploader struct {
	err      error
	calls    int
	received *Payload
	id       string
}

func (f *fakeUploader) Upload(_ context.Context, consultationID string, p *Payload) (*Receipt, error) {
	f.calls++
	f.id = consultationID
	f.received = p
	if f.err != nil {
		return nil, f.err
	}
	return &Receipt{ConsultationID: consultationID, Filename: p.Filename()}, nil
}

func TestServiceSubmit(t *testing.T) {
	art := testArtifact("voice")
	up := &fakeUploader{}
	var events []SubmitEvent
	svc := NewService(staticSource{art}, up, func(e SubmitEvent) { events = append(events, e) })

	receipt, err := svc.Submit(context.Background(), strings.ToUpper(testConsultation), " cough ")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if up.id != testConsultation {
		t.Errorf("consultation id = %q, want canonical form", up.id)
	}
	if up.received.Artifact() != art || up.received.Notes() != "cough" {
		t.Errorf("payload = %+v", up.received)
	}
	if receipt.Filename != "symptoms.webm" {
		t.Errorf("Filename = %q", receipt.Filename)
	}
	if len(events) != 1 || events[0].Err != nil || events[0].Receipt != receipt {
		t.Errorf("events = %+v", events)
	}
}

func TestServiceSubmitErrors(t *testing.T) {
	uploadFailure := &UploadError{Target: "test", ConsultationID: testConsultation, Err: errors.New("boom")}

	tests := []struct {
		name       string
		source     staticSource
		uploader   Uploader
		id         string
		notes      string
		wantErr    error
		wantUpload bool
	}{
		{name: "invalid id", source: staticSource{testArtifact("a")}, uploader: &fakeUploader{}, id: "room-4", wantErr: ErrInvalidConsultation},
		{name: "empty payload", uploader: &fakeUploader{}, id: testConsultation, wantErr: ErrEmptyPayload},
		{name: "upload failure", source: staticSource{testArtifact("a")}, uploader: &fakeUploader{err: uploadFailure}, id: testConsultation, wantErr: uploadFailure, wantUpload: true},
		{name: "disabled", source: staticSource{testArtifact("a")}, id: testConsultation, wantErr: ErrUploadDisabled, wantUpload: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []SubmitEvent
			svc := NewService(tt.source, tt.uploader, func(e SubmitEvent) { events = append(events, e) })

			_, err := svc.Submit(context.Background(), tt.id, tt.notes)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if got := len(events) == 1; got != tt.wantUpload {
				t.Errorf("upload attempted = %v, want %v", got, tt.wantUpload)
			}
			if tt.wantUpload && events[0].Err == nil {
				t.Error("event missing error")
			}
		})
	}
}
