package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/eventlog"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/intake"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/server"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 64 * 1024

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeCaptureError maps capture and upload errors to HTTP responses. The
// failure reason, when known, is returned alongside the message.
func (s *Server) writeCaptureError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	if reason, ok := capture.ReasonOf(err); ok {
		body["reason"] = reason
	}

	var verr *types.ValidationError
	var uploadErr *intake.UploadError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		body["error"] = verr
		status = http.StatusBadRequest
	case errors.Is(err, capture.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, capture.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, capture.ErrDeviceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, intake.ErrEmptyPayload), errors.Is(err, intake.ErrEmptyArtifact),
		errors.Is(err, intake.ErrNotesTooLong), errors.Is(err, intake.ErrInvalidConsultation):
		status = http.StatusBadRequest
	case errors.Is(err, intake.ErrUploadDisabled):
		status = http.StatusServiceUnavailable
	case errors.As(err, &uploadErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, capture.ErrCancelled):
		status = http.StatusRequestTimeout
	}
	s.writeJSON(w, status, body)
}

// parseJSON reads, parses and validates a JSON request body.
// Returns parsed value and true on success, zero value and false on failure.
func parseJSON[T any](s *Server, w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return v, false
	}
	if err := server.Validate(&v); err != nil {
		s.writeCaptureError(w, server.ToValidationError(err))
		return v, false
	}
	return v, true
}

// handleAPIStart requests the microphone and begins recording.
// POST /api/capture/start
func (s *Server) handleAPIStart(w http.ResponseWriter, r *http.Request) {
	if err := s.recorder.Start(r.Context()); err != nil {
		s.writeCaptureError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.recorder.Status())
}

// handleAPIPause suspends recording.
// POST /api/capture/pause
func (s *Server) handleAPIPause(w http.ResponseWriter, _ *http.Request) {
	s.runCaptureAction(w, s.recorder.Pause)
}

// handleAPIResume continues a paused recording.
// POST /api/capture/resume
func (s *Server) handleAPIResume(w http.ResponseWriter, _ *http.Request) {
	s.runCaptureAction(w, s.recorder.Resume)
}

// handleAPIReset discards a stopped or failed recording.
// POST /api/capture/reset
func (s *Server) handleAPIReset(w http.ResponseWriter, _ *http.Request) {
	s.runCaptureAction(w, s.recorder.Reset)
}

func (s *Server) runCaptureAction(w http.ResponseWriter, action func() error) {
	if err := action(); err != nil {
		s.writeCaptureError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.recorder.Status())
}

// handleAPIStop finalizes the recording.
// POST /api/capture/stop
func (s *Server) handleAPIStop(w http.ResponseWriter, _ *http.Request) {
	artifact, err := s.recorder.Stop()
	if err != nil {
		s.writeCaptureError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, artifact.Info())
}

// handleAPIStatus returns the current capture status.
// GET /api/capture/status
func (s *Server) handleAPIStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.recorder.Status())
}

// handleAPIArtifact streams the finished recording for playback review.
// GET /api/capture/artifact
func (s *Server) handleAPIArtifact(w http.ResponseWriter, r *http.Request) {
	artifact := s.recorder.Artifact()
	if artifact == nil {
		s.writeError(w, http.StatusNotFound, "no finished recording")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType())
	w.Header().Set("Content-Disposition", `inline; filename="`+intake.ArtifactFilename(artifact)+`"`)
	http.ServeContent(w, r, "", artifact.CreatedAt(), bytes.NewReader(artifact.Bytes()))
}

// handleAPISubmit uploads the finished recording and notes.
// POST /api/capture/submit
func (s *Server) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := parseJSON[server.SubmitRequest](s, w, r)
	if !ok {
		return
	}
	if s.submitter == nil {
		s.writeCaptureError(w, intake.ErrUploadDisabled)
		return
	}

	snap := s.config.Snapshot()
	ctx, cancel := context.WithTimeout(r.Context(), snap.UploadTimeout())
	defer cancel()

	receipt, err := s.submitter.Submit(ctx, req.ConsultationID, req.Notes)
	if err != nil {
		s.writeCaptureError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, server.SubmissionResult(receipt))
}

// handleAPIDevices returns available audio devices.
// GET /api/devices
func (s *Server) handleAPIDevices(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.listDevices(),
		"current": s.config.AudioInput(),
	})
}

// handleAPIEvents returns a page of the event log, newest first.
// GET /api/events?limit=&offset=&filter=
func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	path := s.eventLog
	if path == "" {
		s.writeError(w, http.StatusNotFound, "event log is disabled")
		return
	}

	q := r.URL.Query()
	req := server.EventsRequest{Filter: q.Get("filter")}
	var err error
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if req.Offset, err = strconv.Atoi(v); err != nil {
			s.writeError(w, http.StatusBadRequest, "offset must be a number")
			return
		}
	}
	if err := server.Validate(&req); err != nil {
		s.writeCaptureError(w, server.ToValidationError(err))
		return
	}
	if req.Limit == 0 {
		req.Limit = server.DefaultEventLimit
	}

	filter, err := eventlog.ParseFilter(req.Filter)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, hasMore, err := eventlog.ReadLast(path, req.Limit, req.Offset, filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, types.EventsResult{
		Type:    "events",
		Success: true,
		Entries: entries,
		HasMore: hasMore,
	})
}

// handleAPIVersion returns build and release information.
// GET /api/version
func (s *Server) handleAPIVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.version.Info())
}
