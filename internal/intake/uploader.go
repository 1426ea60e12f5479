package intake

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUploadDisabled is returned when no upload destination is configured.
var ErrUploadDisabled = errors.New("upload is not configured")

// Uploader sends a payload to the consultation backend.
type Uploader interface {
	Upload(ctx context.Context, consultationID string, p *Payload) (*Receipt, error)
}

// Receipt describes a completed upload.
type Receipt struct {
	ConsultationID string
	Location       string
	Filename       string
	Size           int
	HasNotes       bool
	AudioID        string
	UploadedAt     time.Time
}

// UploadError reports a failed upload. The payload is left intact so the
// caller can retry.
type UploadError struct {
	Target         string
	ConsultationID string
	StatusCode     int
	Err            error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload to %s for consultation %s: status %d: %v", e.Target, e.ConsultationID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload to %s for consultation %s: %v", e.Target, e.ConsultationID, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Disabled is an Uploader that refuses every payload.
type Disabled struct{}

// Upload implements Uploader.
func (Disabled) Upload(context.Context, string, *Payload) (*Receipt, error) {
	return nil, ErrUploadDisabled
}
