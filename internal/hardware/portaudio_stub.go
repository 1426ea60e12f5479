//go:build !portaudio

package hardware

import (
	"context"
	"errors"
	"fmt"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

var errPortAudioUnavailable = errors.New("built without portaudio support")

// PortAudioMicrophone is unavailable in this build; rebuild with -tags portaudio.
type PortAudioMicrophone struct{}

// NewPortAudioMicrophone returns a microphone that always reports the device unavailable.
func NewPortAudioMicrophone(int) *PortAudioMicrophone {
	return &PortAudioMicrophone{}
}

// Open implements capture.Microphone.
func (m *PortAudioMicrophone) Open(context.Context) (capture.Stream, error) {
	return nil, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, errPortAudioUnavailable)
}
