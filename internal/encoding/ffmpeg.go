package encoding

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/ffmpeg"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

const stdoutBufferSize = 32 * 1024

var errEncoderFinished = errors.New("encoder already finished")

// FFmpegEncoder pipes PCM through an FFmpeg process. Output produced while
// recording is delivered to the sink; output produced after Flush begins is
// returned from Flush.
type FFmpegEncoder struct {
	proc   *ffmpeg.Process
	sink   capture.Sink
	preset types.ContainerPreset

	mu       sync.Mutex
	flushing bool
	tail     []byte

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
}

// NewFFmpegEncoder starts FFmpeg for the given container preset.
func NewFFmpegEncoder(ffmpegPath string, preset types.ContainerPreset, format audio.Format, sink capture.Sink) (*FFmpegEncoder, error) {
	proc, err := ffmpeg.Start(ffmpegPath, ffmpeg.EncodeArgs(format, preset))
	if err != nil {
		return nil, err
	}

	e := &FFmpegEncoder{
		proc:   proc,
		sink:   sink,
		preset: preset,
		done:   make(chan struct{}),
	}
	go e.readOutput()

	slog.Info("encoder started", "format", preset.Format, "pid", proc.Cmd.Process.Pid)
	return e, nil
}

// readOutput owns stdout and the process wait.
func (e *FFmpegEncoder) readOutput() {
	defer close(e.done)

	buf := make([]byte, stdoutBufferSize)
	for {
		n, err := e.proc.Stdout.Read(buf)
		if n > 0 {
			e.mu.Lock()
			if e.flushing {
				e.tail = append(e.tail, buf[:n]...)
				e.mu.Unlock()
			} else {
				e.mu.Unlock()
				e.sink.Deliver(buf[:n])
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("encoder output read failed", "error", err)
			}
			break
		}
	}

	e.waitErr = e.proc.Cmd.Wait()

	e.mu.Lock()
	unexpected := !e.flushing
	e.mu.Unlock()
	if unexpected {
		e.sink.Fail(e.exitError("encoder exited unexpectedly"))
	}
}

func (e *FFmpegEncoder) exitError(msg string) error {
	if last := util.LastLine(e.proc.Stderr.String()); last != "" {
		return fmt.Errorf("%s: %s", msg, last)
	}
	if e.waitErr != nil {
		return fmt.Errorf("%s: %w", msg, e.waitErr)
	}
	return errors.New(msg)
}

// Write implements capture.Encoder.
func (e *FFmpegEncoder) Write(pcm []byte) error {
	e.mu.Lock()
	finished := e.flushing
	e.mu.Unlock()
	if finished {
		return errEncoderFinished
	}
	if _, err := e.proc.Stdin.Write(pcm); err != nil {
		return fmt.Errorf("write to encoder: %w", err)
	}
	return nil
}

// Flush implements capture.Encoder. Closing stdin lets FFmpeg finish the
// container; everything it writes afterwards is returned.
func (e *FFmpegEncoder) Flush() ([]byte, error) {
	e.mu.Lock()
	if e.flushing {
		e.mu.Unlock()
		return nil, errEncoderFinished
	}
	e.flushing = true
	e.mu.Unlock()

	if err := e.proc.Stdin.Close(); err != nil {
		slog.Warn("failed to close encoder input", "error", err)
	}

	select {
	case <-e.done:
	case <-time.After(types.ShutdownTimeout):
		slog.Warn("encoder did not finish in time, stopping")
		e.proc.Cancel()
		<-e.done
	}

	e.mu.Lock()
	tail := e.tail
	e.tail = nil
	e.mu.Unlock()

	if e.waitErr != nil {
		return tail, e.exitError("encoder failed")
	}
	return tail, nil
}

// Close implements capture.Encoder.
func (e *FFmpegEncoder) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.flushing = true
		e.mu.Unlock()

		_ = e.proc.Stdin.Close()
		e.proc.Cancel()
		<-e.done
	})
	return nil
}

// ContentType implements capture.Encoder.
func (e *FFmpegEncoder) ContentType() string { return e.preset.ContentType }

// Extension implements capture.Encoder.
func (e *FFmpegEncoder) Extension() string { return e.preset.Extension }
