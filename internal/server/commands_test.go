package server

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/config"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/eventlog"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/intake"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

const testConsultation = "0b6f7d5c-3f4e-4b8a-9d55-0f1c2e3a4b5c"

type fakeCapture struct {
	mu       sync.Mutex
	state    capture.State
	startErr error
	calls    []string
}

func (f *fakeCapture) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeCapture) Start(context.Context) error {
	f.record("start")
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.state = capture.StateRecording
	f.mu.Unlock()
	return nil
}

func (f *fakeCapture) Pause() error {
	f.record("pause")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != capture.StateRecording {
		return &capture.TransitionError{From: f.state, Op: "pause"}
	}
	f.state = capture.StatePaused
	return nil
}

func (f *fakeCapture) Resume() error {
	f.record("resume")
	return nil
}

func (f *fakeCapture) Stop() (*capture.Artifact, error) {
	f.record("stop")
	f.mu.Lock()
	f.state = capture.StateStopped
	f.mu.Unlock()
	return capture.NewArtifact([]byte("abc"), "audio/webm", "webm", 2, time.Now()), nil
}

func (f *fakeCapture) Reset() error {
	f.record("reset")
	return nil
}

func (f *fakeCapture) Status() capture.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return capture.Status{State: f.state}
}

type fakeSubmitter struct {
	err   error
	gotID string
}

func (f *fakeSubmitter) Submit(_ context.Context, id, notes string) (*intake.Receipt, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &intake.Receipt{
		ConsultationID: id,
		Filename:       "symptoms.webm",
		Size:           3,
		HasNotes:       notes != "",
		AudioID:        "a-1",
		UploadedAt:     time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
	}, nil
}

type fakeDevices struct{ device string }

func (f *fakeDevices) SetDevice(d string) { f.device = d }

func newTestHandler(t *testing.T, deps HandlerDeps) *CommandHandler {
	t.Helper()
	if deps.Config == nil {
		deps.Config = config.New(filepath.Join(t.TempDir(), "config.json"))
	}
	if deps.Capture == nil {
		deps.Capture = &fakeCapture{state: capture.StateIdle}
	}
	return NewCommandHandler(deps)
}

func command(t *testing.T, typ string, data any) WSCommand {
	t.Helper()
	cmd := WSCommand{Type: typ, ID: "c1"}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatal(err)
		}
		cmd.Data = raw
	}
	return cmd
}

func recv(t *testing.T, send <-chan any) any {
	t.Helper()
	select {
	case msg := <-send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no response")
		return nil
	}
}

func recvResult(t *testing.T, send <-chan any) types.WSCommandResult {
	t.Helper()
	res, ok := recv(t, send).(types.WSCommandResult)
	if !ok {
		t.Fatal("response is not a command result")
	}
	return res
}

func TestHandleCapture(t *testing.T) {
	fc := &fakeCapture{state: capture.StateIdle}
	h := newTestHandler(t, HandlerDeps{Capture: fc})
	send := make(chan any, 8)

	h.Handle(command(t, "capture/start", nil), send, func() {})
	res := recvResult(t, send)
	if !res.Success || res.Type != "capture/start_result" || res.ID != "c1" {
		t.Fatalf("start result = %+v", res)
	}
	if st, ok := res.Data.(capture.Status); !ok || st.State != capture.StateRecording {
		t.Errorf("start data = %#v", res.Data)
	}

	h.Handle(command(t, "capture/stop", nil), send, func() {})
	res = recvResult(t, send)
	info, ok := res.Data.(*capture.ArtifactInfo)
	if !res.Success || !ok || info.Size != 3 {
		t.Errorf("stop result = %+v", res)
	}

	h.Handle(command(t, "capture/pause", nil), send, func() {})
	res = recvResult(t, send)
	if res.Success || res.Error == nil {
		t.Errorf("pause after stop = %+v, want error", res)
	}
}

func TestHandleCaptureStartFailureCarriesReason(t *testing.T) {
	fc := &fakeCapture{
		state:    capture.StateIdle,
		startErr: &capture.AcquisitionError{Reason: capture.ReasonPermissionDenied, Err: capture.ErrPermissionDenied},
	}
	h := newTestHandler(t, HandlerDeps{Capture: fc})
	send := make(chan any, 8)

	h.Handle(command(t, "capture/start", nil), send, func() {})
	res := recvResult(t, send)
	if res.Success {
		t.Fatal("start succeeded")
	}
	if res.Reason != string(capture.ReasonPermissionDenied) {
		t.Errorf("Reason = %q", res.Reason)
	}
}

func TestHandleSubmit(t *testing.T) {
	tests := []struct {
		name      string
		data      any
		submitter *fakeSubmitter
		wantOK    bool
	}{
		{name: "uploads", data: SubmitRequest{ConsultationID: testConsultation, Notes: "cough"}, submitter: &fakeSubmitter{}, wantOK: true},
		{name: "missing consultation", data: SubmitRequest{Notes: "cough"}, submitter: &fakeSubmitter{}},
		{name: "not a uuid", data: SubmitRequest{ConsultationID: "abc"}, submitter: &fakeSubmitter{}},
		{name: "upload fails", data: SubmitRequest{ConsultationID: testConsultation}, submitter: &fakeSubmitter{err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, HandlerDeps{Submitter: tt.submitter})
			send := make(chan any, 8)

			h.Handle(command(t, "capture/submit", tt.data), send, func() {})
			res := recvResult(t, send)
			if res.Success != tt.wantOK {
				t.Fatalf("Success = %v, want %v (%+v)", res.Success, tt.wantOK, res)
			}
			if !tt.wantOK {
				return
			}
			result, ok := res.Data.(types.SubmissionResult)
			if !ok {
				t.Fatalf("data = %#v", res.Data)
			}
			if result.AudioID != "a-1" || !result.HasNotes || result.SubmittedAt != "2026-01-02T09:00:00Z" {
				t.Errorf("result = %+v", result)
			}
		})
	}
}

func TestHandleSubmitValidationErrors(t *testing.T) {
	h := newTestHandler(t, HandlerDeps{Submitter: &fakeSubmitter{}})
	send := make(chan any, 8)

	h.Handle(command(t, "capture/submit", map[string]string{"consultation_id": "nope"}), send, func() {})
	res := recvResult(t, send)
	verr, ok := res.Error.(*types.ValidationError)
	if !ok {
		t.Fatalf("Error = %#v, want *types.ValidationError", res.Error)
	}
	if len(verr.Errors) != 1 || verr.Errors[0].Field != "consultation_id" {
		t.Errorf("errors = %+v", verr.Errors)
	}
}

func TestHandleAudio(t *testing.T) {
	devices := &fakeDevices{}
	h := newTestHandler(t, HandlerDeps{
		Devices:   devices,
		ListInput: func() []audio.Device { return []audio.Device{{ID: "hw:1", Name: "USB Mic"}} },
	})
	send := make(chan any, 8)

	h.Handle(command(t, "audio/update", AudioUpdateRequest{Input: "hw:1"}), send, func() {})
	if res := recvResult(t, send); !res.Success {
		t.Fatalf("update = %+v", res)
	}
	if devices.device != "hw:1" {
		t.Errorf("device = %q", devices.device)
	}
	if got := h.cfg.AudioInput(); got != "hw:1" {
		t.Errorf("config input = %q", got)
	}

	h.Handle(command(t, "audio/devices", nil), send, func() {})
	res := recvResult(t, send)
	list, ok := res.Data.([]audio.Device)
	if !ok || len(list) != 1 || list[0].Name != "USB Mic" {
		t.Errorf("devices = %#v", res.Data)
	}
}

func TestHandleEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	logger, err := eventlog.NewLogger(path, eventlog.Rotation{})
	if err != nil {
		t.Fatal(err)
	}
	for _, typ := range []eventlog.EventType{eventlog.SessionStarted, eventlog.UploadCompleted, eventlog.SessionStopped} {
		if err := logger.Log(&eventlog.Event{Type: typ, SessionID: "s"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	h := newTestHandler(t, HandlerDeps{EventLog: path})
	send := make(chan any, 8)

	h.Handle(command(t, "events/get", EventsRequest{Filter: "upload"}), send, func() {})
	res, ok := recv(t, send).(types.EventsResult)
	if !ok || !res.Success {
		t.Fatalf("result = %#v", res)
	}
	entries, _ := res.Entries.([]eventlog.Event)
	if len(entries) != 1 || entries[0].Type != eventlog.UploadCompleted {
		t.Errorf("entries = %+v", entries)
	}

	h.Handle(command(t, "events/get", EventsRequest{Filter: "bogus"}), send, func() {})
	if res := recvResult(t, send); res.Success {
		t.Error("bogus filter accepted")
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	h := newTestHandler(t, HandlerDeps{})
	send := make(chan any, 8)
	updated := false

	h.Handle(command(t, "outputs/add", nil), send, func() { updated = true })
	if res := recvResult(t, send); res.Success {
		t.Error("unknown command succeeded")
	}
	if !updated {
		t.Error("status update not triggered")
	}
}

func TestHub(t *testing.T) {
	hub := NewHub()
	a := make(chan any, 1)
	b := make(chan any, 1)
	unregisterA := hub.Register(a)
	hub.Register(b)

	hub.Broadcast("one")
	if <-a != "one" || <-b != "one" {
		t.Fatal("broadcast not delivered")
	}

	unregisterA()
	hub.Broadcast("two")
	if hub.Len() != 1 {
		t.Errorf("Len = %d, want 1", hub.Len())
	}
	select {
	case msg := <-a:
		t.Errorf("unregistered client got %v", msg)
	default:
	}
	if <-b != "two" {
		t.Error("remaining client missed broadcast")
	}
}
