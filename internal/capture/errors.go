package capture

import (
	"errors"
	"fmt"
)

// Sentinel errors for capture operations.
var (
	// ErrInvalidTransition is matched by every rejected state transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPermissionDenied is returned by microphones when the user or OS refuses access.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceUnavailable is returned by microphones when no usable input device exists.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")

	// ErrCancelled is returned when a pending acquisition is stopped or its context ends.
	ErrCancelled = errors.New("microphone request cancelled")

	// ErrNoAudio is returned when a session ends before any audio was encoded.
	ErrNoAudio = errors.New("no audio captured")

	// ErrClosed is returned after the session has been closed.
	ErrClosed = errors.New("capture session closed")
)

// TransitionError reports a call made in a state that does not allow it.
// The session state is unchanged.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", ErrInvalidTransition, e.Op, e.From)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// AcquisitionError reports that microphone access failed.
type AcquisitionError struct {
	Reason Reason
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire microphone (%s): %v", e.Reason, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// EncodingError reports that the encoder or the stream failed before any
// audio could be kept.
type EncodingError struct {
	Reason Reason
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode audio (%s): %v", e.Reason, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason carried by err.
func ReasonOf(err error) (Reason, bool) {
	var acq *AcquisitionError
	if errors.As(err, &acq) {
		return acq.Reason, true
	}
	var enc *EncodingError
	if errors.As(err, &enc) {
		return enc.Reason, true
	}
	return "", false
}

// acquisitionReason classifies a microphone open error.
func acquisitionReason(err error) Reason {
	if errors.Is(err, ErrPermissionDenied) {
		return ReasonPermissionDenied
	}
	return ReasonDeviceUnavailable
}
