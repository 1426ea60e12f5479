package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

// ErrInvalidConsultation is returned for consultation IDs that are not UUIDs.
var ErrInvalidConsultation = errors.New("consultation id must be a uuid")

// ArtifactSource provides the current finished recording, if any.
type ArtifactSource interface {
	Artifact() *capture.Artifact
}

// SubmitEvent reports the outcome of a submission.
type SubmitEvent struct {
	ConsultationID string
	Receipt        *Receipt
	Err            error
}

// Service submits the current recording and notes for a consultation.
type Service struct {
	source   ArtifactSource
	uploader Uploader
	observe  func(SubmitEvent)
}

// NewService creates a submission service. observe may be nil.
func NewService(source ArtifactSource, uploader Uploader, observe func(SubmitEvent)) *Service {
	if uploader == nil {
		uploader = Disabled{}
	}
	return &Service{source: source, uploader: uploader, observe: observe}
}

// Submit packages the current artifact with notes and uploads it. On
// failure the artifact stays with the session so the user can retry.
func (s *Service) Submit(ctx context.Context, consultationID, notes string) (*Receipt, error) {
	id, err := uuid.Parse(consultationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConsultation, err)
	}
	consultationID = id.String()

	payload, err := NewPayload(s.source.Artifact(), notes)
	if err != nil {
		return nil, err
	}

	receipt, err := s.uploader.Upload(ctx, consultationID, payload)
	if s.observe != nil {
		s.observe(SubmitEvent{ConsultationID: consultationID, Receipt: receipt, Err: err})
	}
	if err != nil {
		slog.Error("symptom upload failed", "consultation_id", consultationID, "error", err)
		return nil, err
	}
	return receipt, nil
}
