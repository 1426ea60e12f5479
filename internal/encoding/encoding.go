// Package encoding turns captured PCM into the upload container, either
// through an FFmpeg subprocess or natively for WAV.
package encoding

import (
	"errors"
	"fmt"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

// ErrFFmpegRequired is returned when a container needs FFmpeg and none was found.
var ErrFFmpegRequired = errors.New("ffmpeg is required for this container")

// Factory creates encoders for the configured container.
type Factory struct {
	ffmpegPath  string
	container   types.Container
	bitrateKbps int
}

// NewFactory validates the container and returns a factory for it.
func NewFactory(ffmpegPath string, container types.Container) (*Factory, error) {
	if _, ok := types.ContainerPresets[container]; !ok {
		return nil, fmt.Errorf("unsupported container %q", container)
	}
	if container.NeedsFFmpeg() && ffmpegPath == "" {
		return nil, fmt.Errorf("%w: %s", ErrFFmpegRequired, container)
	}
	return &Factory{ffmpegPath: ffmpegPath, container: container}, nil
}

// WithBitrate overrides the preset bitrate for lossy containers.
func (f *Factory) WithBitrate(kbps int) *Factory {
	f.bitrateKbps = kbps
	return f
}

// Container returns the container this factory produces.
func (f *Factory) Container() types.Container {
	return f.container
}

// NewEncoder implements capture.EncoderFactory.
func (f *Factory) NewEncoder(format audio.Format, sink capture.Sink) (capture.Encoder, error) {
	if !f.container.NeedsFFmpeg() {
		return NewWAVEncoder(format, sink), nil
	}
	return NewFFmpegEncoder(f.ffmpegPath, types.PresetFor(f.container).WithBitrate(f.bitrateKbps), format, sink)
}
