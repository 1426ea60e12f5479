package notify

import (
	"context"
	"log/slog"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

// LogNotifier writes notices to the structured log.
type LogNotifier struct{}

// Notify implements capture.Notifier.
func (LogNotifier) Notify(_ context.Context, n capture.Notice) {
	slog.Warn("capture failed", "session", n.Session, "reason", n.Reason, "error", n.Err, "message", Message(n.Reason))
}

// Message returns the text shown to the user for a failure reason.
func Message(reason capture.Reason) string {
	switch reason {
	case capture.ReasonPermissionDenied:
		return "Microphone access was denied. Allow microphone access and try again, or type your symptoms instead."
	case capture.ReasonDeviceUnavailable:
		return "No microphone is available. Connect a microphone and try again, or type your symptoms instead."
	case capture.ReasonEncoderError:
		return "The recording could not be saved. Please try again."
	default:
		return "Recording is unavailable."
	}
}

// Func adapts a function to capture.Notifier.
type Func func(ctx context.Context, n capture.Notice)

// Notify implements capture.Notifier.
func (f Func) Notify(ctx context.Context, n capture.Notice) {
	f(ctx, n)
}

// Multi fans a notice out to every notifier in order.
type Multi []capture.Notifier

// Notify implements capture.Notifier.
func (m Multi) Notify(ctx context.Context, n capture.Notice) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}
