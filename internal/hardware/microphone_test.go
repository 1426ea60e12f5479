package hardware

import (
	"errors"
	"testing"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

func TestClassifyCaptureError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{
			name:   "alsa permission",
			stderr: "arecord: main:831: audio open error: Permission denied\n",
			want:   capture.ErrPermissionDenied,
		},
		{
			name:   "macos privacy",
			stderr: "[AVFoundation indev @ 0x7f] Failed to create AV capture input device: Operation not permitted\n",
			want:   capture.ErrPermissionDenied,
		},
		{
			name:   "missing device",
			stderr: "arecord: main:831: audio open error: No such file or directory\n",
			want:   capture.ErrDeviceUnavailable,
		},
		{
			name:   "busy device",
			stderr: "audio open error: Device or resource busy",
			want:   capture.ErrDeviceUnavailable,
		},
		{
			name: "no output",
			want: capture.ErrDeviceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyCaptureError(tt.stderr, errors.New("exit status 1"))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClassifyCaptureError_UsesLastLine(t *testing.T) {
	err := ClassifyCaptureError("Input #0\naudio open error: Device or resource busy\n", nil)
	if got := err.Error(); got != "audio input device unavailable: audio open error: Device or resource busy" {
		t.Errorf("unexpected message %q", got)
	}
}
