//go:build portaudio

package hardware

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

// framesPerBuffer is 20 ms at 48 kHz.
const framesPerBuffer = 960

// PortAudioMicrophone captures through PortAudio's default input device.
type PortAudioMicrophone struct {
	format audio.Format
}

// NewPortAudioMicrophone creates a PortAudio microphone.
func NewPortAudioMicrophone(sampleRate int) *PortAudioMicrophone {
	format := audio.DefaultFormat()
	if sampleRate > 0 {
		format.SampleRate = sampleRate
	}
	return &PortAudioMicrophone{format: format}
}

// Open implements capture.Microphone.
func (m *PortAudioMicrophone) Open(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", capture.ErrCancelled, err)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
	}

	buf := make([]int16, framesPerBuffer*m.format.Channels)
	stream, err := portaudio.OpenDefaultStream(m.format.Channels, 0, float64(m.format.SampleRate), framesPerBuffer, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, classifyPortAudio(err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, classifyPortAudio(err)
	}

	slog.Info("microphone granted", "backend", "portaudio")
	return &portAudioStream{stream: stream, buf: buf, format: m.format}, nil
}

func classifyPortAudio(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "permission") {
		return fmt.Errorf("%w: %w", capture.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
}

// overflowed reports an input overflow. The buffer still holds a full
// read; only older samples were dropped.
func overflowed(err error) bool {
	if errors.Is(err, portaudio.InputOverflowed) {
		slog.Debug("portaudio input overflowed")
		return true
	}
	return false
}

type portAudioStream struct {
	stream  *portaudio.Stream
	buf     []int16
	pending []byte
	format  audio.Format

	closed      atomic.Bool
	releaseOnce sync.Once
}

// Read returns PCM from the device. After Close the next Read releases
// PortAudio on the reading goroutine, since the stream must not be closed
// while a read is in progress.
func (s *portAudioStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if s.closed.Load() {
			s.release()
			return 0, io.EOF
		}
		if err := s.stream.Read(); err != nil && !overflowed(err) {
			if s.closed.Load() {
				s.release()
				return 0, io.EOF
			}
			return 0, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
		}
		out := make([]byte, 0, len(s.buf)*audio.BytesPerSample)
		for _, v := range s.buf {
			out = binary.LittleEndian.AppendUint16(out, uint16(v)) //nolint:gosec // Two's complement reinterpretation
		}
		s.pending = out
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *portAudioStream) Format() audio.Format {
	return s.format
}

func (s *portAudioStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.stream.Abort()
}

func (s *portAudioStream) release() {
	s.releaseOnce.Do(func() {
		if err := s.stream.Close(); err != nil {
			slog.Warn("failed to close portaudio stream", "error", err)
		}
		if err := portaudio.Terminate(); err != nil {
			slog.Warn("failed to terminate portaudio", "error", err)
		}
		slog.Info("microphone released", "backend", "portaudio")
	})
}
