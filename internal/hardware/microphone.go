// Package hardware opens real microphones for capture sessions.
package hardware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

// DefaultProbeTimeout bounds how long Open waits for the first audio.
const DefaultProbeTimeout = 5 * time.Second

const probeBufferSize = 4096

// FFmpegMicrophone captures through the platform capture command (FFmpeg,
// or arecord on Linux). Access is considered granted once the first audio
// arrives.
type FFmpegMicrophone struct {
	mu           sync.Mutex
	device       string
	ffmpegPath   string
	format       audio.Format
	probeTimeout time.Duration
}

// NewFFmpegMicrophone creates a microphone for device. An empty device
// selects the platform default.
func NewFFmpegMicrophone(device, ffmpegPath string, sampleRate int) *FFmpegMicrophone {
	format := audio.DefaultFormat()
	if sampleRate > 0 {
		format.SampleRate = sampleRate
	}
	return &FFmpegMicrophone{
		device:       device,
		ffmpegPath:   ffmpegPath,
		format:       format,
		probeTimeout: DefaultProbeTimeout,
	}
}

// Device returns the selected capture device.
func (m *FFmpegMicrophone) Device() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device
}

// SetDevice selects the device used by the next Open.
func (m *FFmpegMicrophone) SetDevice(device string) {
	m.mu.Lock()
	m.device = device
	m.mu.Unlock()
}

type probeResult struct {
	data []byte
	err  error
}

// Open implements capture.Microphone.
func (m *FFmpegMicrophone) Open(ctx context.Context) (capture.Stream, error) {
	device := m.Device()
	capCmd, err := audio.CaptureCommand(device, m.ffmpegPath, m.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
	}

	slog.Info("requesting microphone", "command", capCmd.Name, "device", device)

	// The process outlives ctx, which only bounds the request.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, capCmd.Name, capCmd.Args...)
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
	}

	probe := make(chan probeResult, 1)
	go func() {
		buf := make([]byte, probeBufferSize)
		n, err := io.ReadAtLeast(stdout, buf, 1)
		probe <- probeResult{data: buf[:n], err: err}
	}()

	abort := func() {
		cancel()
		<-probe
		_ = cmd.Wait()
	}

	select {
	case r := <-probe:
		if r.err != nil {
			cancel()
			waitErr := cmd.Wait()
			return nil, ClassifyCaptureError(stderr.String(), errors.Join(r.err, waitErr))
		}
		slog.Info("microphone granted", "device", device, "pid", cmd.Process.Pid)
		return &ffmpegStream{
			cmd:     cmd,
			cancel:  cancel,
			stdout:  stdout,
			stderr:  stderr,
			pending: r.data,
			format:  m.format,
		}, nil
	case <-ctx.Done():
		abort()
		return nil, fmt.Errorf("%w: %w", capture.ErrCancelled, ctx.Err())
	case <-time.After(m.probeTimeout):
		abort()
		return nil, ClassifyCaptureError(stderr.String(), fmt.Errorf("no audio within %s", m.probeTimeout))
	}
}

// ClassifyCaptureError maps capture command output to a capture sentinel.
func ClassifyCaptureError(stderr string, cause error) error {
	detail := util.LastLine(stderr)
	if detail == "" && cause != nil {
		detail = cause.Error()
	}

	lower := strings.ToLower(stderr)
	for _, marker := range []string{"permission denied", "operation not permitted", "not authorized", "access denied"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", capture.ErrPermissionDenied, detail)
		}
	}
	return fmt.Errorf("%w: %s", capture.ErrDeviceUnavailable, detail)
}

type ffmpegStream struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stdout  io.ReadCloser
	stderr  *syncBuffer
	pending []byte
	format  audio.Format

	closeOnce sync.Once
	closed    atomic.Bool
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	n, err := s.stdout.Read(p)
	if err != nil && n == 0 && !s.closed.Load() {
		return 0, ClassifyCaptureError(s.stderr.String(), err)
	}
	return n, err
}

func (s *ffmpegStream) Format() audio.Format {
	return s.format
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.cancel()
		if err := s.cmd.Wait(); err != nil {
			slog.Debug("capture process exited", "error", err)
		}
		slog.Info("microphone released")
	})
	return nil
}

// syncBuffer is a bytes.Buffer safe for the exec copier and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
