// Package ffmpeg runs FFmpeg children for encoding captured PCM.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

// Process is a running FFmpeg child with its pipes. Stderr is complete
// once Cmd.Wait returns.
type Process struct {
	Cmd    *exec.Cmd
	Cancel context.CancelFunc
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr *bytes.Buffer
}

// InputArgs reads raw S16LE PCM in format from stdin.
func InputArgs(format audio.Format) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		"-i", "pipe:0",
	}
}

// EncodeArgs encodes stdin PCM with preset and writes the container to
// stdout.
func EncodeArgs(format audio.Format, preset types.ContainerPreset) []string {
	args := append(InputArgs(format), "-codec:a")
	args = append(args, preset.Args...)
	return append(args, "-f", preset.Format, "pipe:1")
}

// Start launches ffmpegPath with piped stdin and stdout. Cancel asks the
// child to exit and kills it after types.ShutdownTimeout.
func Start(ffmpegPath string, args []string) (*Process, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Cancel = func() error { return util.GracefulSignal(cmd.Process) }
	cmd.WaitDelay = types.ShutdownTimeout

	p := &Process{Cmd: cmd, Cancel: cancel, Stderr: &bytes.Buffer{}}
	cmd.Stderr = p.Stderr

	var err error
	if p.Stdin, err = cmd.StdinPipe(); err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	if p.Stdout, err = cmd.StdoutPipe(); err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		if cerr := p.Stdin.Close(); cerr != nil {
			slog.Warn("close ffmpeg stdin", "error", cerr)
		}
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return p, nil
}

// Resolve returns the FFmpeg binary to run: custom when it is executable, or
// ffmpeg from PATH when custom is empty. It returns "" when none is usable.
func Resolve(custom string) string {
	name := custom
	if name == "" {
		name = "ffmpeg"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	if custom != "" {
		return custom
	}
	return path
}
