package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/config"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/eventlog"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/intake"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/notify"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

// Limits for command handling.
const (
	DefaultEventLimit = 50               // Events returned when no limit is given
	SubmitTimeout     = 60 * time.Second // Upper bound when the config sets none
)

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Capture is the capture surface driven by commands.
type Capture interface {
	Start(ctx context.Context) error
	Pause() error
	Resume() error
	Stop() (*capture.Artifact, error)
	Reset() error
	Status() capture.Status
}

// Submitter uploads the current recording for a consultation.
type Submitter interface {
	Submit(ctx context.Context, consultationID, notes string) (*intake.Receipt, error)
}

// DeviceSelector switches the input used by the next recording.
type DeviceSelector interface {
	SetDevice(device string)
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg       *config.Config
	capture   Capture
	submitter Submitter
	devices   DeviceSelector
	webhook   *notify.WebhookNotifier
	eventLog  string
	listInput func() []audio.Device
}

// HandlerDeps groups the collaborators of a CommandHandler.
type HandlerDeps struct {
	Config    *config.Config
	Capture   Capture
	Submitter Submitter
	Devices   DeviceSelector          // Optional
	Webhook   *notify.WebhookNotifier // Optional
	EventLog  string                  // Path of the event log, empty when disabled
	ListInput func() []audio.Device   // Defaults to audio.ListDevices
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(deps HandlerDeps) *CommandHandler {
	list := deps.ListInput
	if list == nil {
		list = audio.ListDevices
	}
	return &CommandHandler{
		cfg:       deps.Config,
		capture:   deps.Capture,
		submitter: deps.Submitter,
		devices:   deps.Devices,
		webhook:   deps.Webhook,
		eventLog:  deps.EventLog,
		listInput: list,
	}
}

// Handle runs one slash-style command ("capture/start", "audio/update") and
// replies on send. A bare "status" pushes a status update instead.
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 3)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	subaction := ""
	if len(parts) > 2 {
		subaction = parts[2]
	}

	switch namespace {
	case "capture":
		h.handleCapture(action, cmd, send, triggerStatusUpdate)
	case "audio":
		h.handleAudio(action, cmd, send)
	case "events":
		h.handleEvents(action, cmd, send)
	case "notifications":
		h.handleNotifications(action, subaction, cmd, send)
	case "status":
		triggerStatusUpdate()
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
		SendError(send, cmd, fmt.Errorf("unknown command: %s", cmd.Type))
	}

	triggerStatusUpdate()
}

// --- Namespace handlers ---

// handleCapture routes capture/* commands
func (h *CommandHandler) handleCapture(action string, cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	switch action {
	case "start":
		// Start blocks until the microphone grant resolves
		HandleActionAsync(cmd, send, func() (any, error) {
			defer triggerStatusUpdate()
			if err := h.capture.Start(context.Background()); err != nil {
				return nil, err
			}
			return h.capture.Status(), nil
		})
	case "pause":
		h.runAction(cmd, send, h.capture.Pause)
	case "resume":
		h.runAction(cmd, send, h.capture.Resume)
	case "stop":
		artifact, err := h.capture.Stop()
		if err != nil {
			SendError(send, cmd, err)
			return
		}
		SendSuccess(send, cmd, artifact.Info())
	case "reset":
		h.runAction(cmd, send, h.capture.Reset)
	case "status":
		SendSuccess(send, cmd, h.capture.Status())
	case "submit":
		h.handleSubmit(cmd, send)
	default:
		slog.Warn("unknown capture action", "action", action)
		SendError(send, cmd, fmt.Errorf("unknown capture action: %s", action))
	}
}

func (h *CommandHandler) runAction(cmd WSCommand, send chan<- any, action func() error) {
	if err := action(); err != nil {
		SendError(send, cmd, err)
		return
	}
	SendSuccess(send, cmd, h.capture.Status())
}

// handleSubmit uploads the finished recording in the background.
func (h *CommandHandler) handleSubmit(cmd WSCommand, send chan<- any) {
	var req SubmitRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}
	if h.submitter == nil {
		SendError(send, cmd, intake.ErrUploadDisabled)
		return
	}

	timeout := SubmitTimeout
	if h.cfg != nil {
		snap := h.cfg.Snapshot()
		if d := snap.UploadTimeout(); d > 0 {
			timeout = d
		}
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		receipt, err := h.submitter.Submit(ctx, req.ConsultationID, req.Notes)
		if err != nil {
			return nil, err
		}
		return SubmissionResult(receipt), nil
	})
}

// handleAudio routes audio/* commands
func (h *CommandHandler) handleAudio(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *AudioUpdateRequest) (any, error) {
			if h.cfg != nil {
				if err := h.cfg.SetAudioInput(req.Input); err != nil {
					return nil, fmt.Errorf("save audio input: %w", err)
				}
			}
			if h.devices != nil {
				h.devices.SetDevice(req.Input)
			}
			slog.Info("audio input changed", "input", req.Input)
			return map[string]string{"input": req.Input}, nil
		})
	case "devices":
		SendSuccess(send, cmd, h.listInput())
	default:
		slog.Warn("unknown audio action", "action", action)
		SendError(send, cmd, fmt.Errorf("unknown audio action: %s", action))
	}
}

// handleEvents routes events/* commands
func (h *CommandHandler) handleEvents(action string, cmd WSCommand, send chan<- any) {
	if action != "get" {
		slog.Warn("unknown events action", "action", action)
		SendError(send, cmd, fmt.Errorf("unknown events action: %s", action))
		return
	}

	var req EventsRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	result := types.EventsResult{Type: cmd.Type + "_result"}
	if h.eventLog == "" {
		result.Error = "event log is disabled"
		trySend(send, cmd.Type, result)
		return
	}

	filter, err := eventlog.ParseFilter(req.Filter)
	if err != nil {
		result.Error = err.Error()
		trySend(send, cmd.Type, result)
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultEventLimit
	}

	entries, hasMore, err := eventlog.ReadLast(h.eventLog, limit, req.Offset, filter)
	if err != nil {
		result.Error = err.Error()
		trySend(send, cmd.Type, result)
		return
	}
	result.Success = true
	result.Entries = entries
	result.HasMore = hasMore
	trySend(send, cmd.Type, result)
}

// handleNotifications routes notifications/*/* commands
func (h *CommandHandler) handleNotifications(action, subaction string, cmd WSCommand, send chan<- any) {
	if action != "webhook" || subaction != "test" {
		slog.Warn("unknown notifications action", "action", action, "subaction", subaction)
		SendError(send, cmd, fmt.Errorf("unknown notifications action: %s/%s", action, subaction))
		return
	}
	if h.webhook == nil {
		SendError(send, cmd, errors.New("webhook is not configured"))
		return
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.webhook.SendTest(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// SubmissionResult converts an upload receipt to its wire form.
func SubmissionResult(r *intake.Receipt) types.SubmissionResult {
	return types.SubmissionResult{
		ConsultationID: r.ConsultationID,
		Location:       r.Location,
		Filename:       r.Filename,
		SizeBytes:      r.Size,
		HasNotes:       r.HasNotes,
		AudioID:        r.AudioID,
		SubmittedAt:    r.UploadedAt.UTC().Format(time.RFC3339),
	}
}
