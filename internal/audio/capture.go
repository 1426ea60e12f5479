package audio

import (
	"errors"
	"strconv"
)

// ErrNoInputDevice is returned when the platform lists no microphone.
var ErrNoInputDevice = errors.New("no audio input device found")

// Command is a child process that writes raw S16LE PCM to stdout.
type Command struct {
	Name string
	Args []string
}

type backend struct {
	binary   string
	fallback string
	args     func(device string, f Format) []string
	listing  deviceListing
}

// CaptureCommand returns the command streaming PCM in format f from device.
// An empty device selects the platform default, then the first listed input.
// ffmpegPath replaces the binary on platforms that capture through FFmpeg.
func CaptureCommand(device, ffmpegPath string, f Format) (Command, error) {
	b := platformBackend()

	if device == "" {
		device = b.fallback
	}
	if device == "" {
		inputs := b.listing.run()
		if len(inputs) == 0 {
			return Command{}, ErrNoInputDevice
		}
		device = inputs[0].ID
	}

	if f.SampleRate <= 0 {
		f.SampleRate = DefaultSampleRate
	}
	if f.Channels <= 0 {
		f.Channels = Channels
	}

	name := b.binary
	if name == "ffmpeg" && ffmpegPath != "" {
		name = ffmpegPath
	}
	return Command{Name: name, Args: b.args(device, f)}, nil
}

// ListDevices returns the input devices of the current platform.
func ListDevices() []Device {
	return platformBackend().listing.run()
}

// ffmpegCapture reads from an FFmpeg input device and writes PCM to stdout.
// Windows keeps stdin open so FFmpeg can be asked to quit.
func ffmpegCapture(inputFormat string, keepStdin bool) func(string, Format) []string {
	return func(device string, f Format) []string {
		args := []string{"-hide_banner", "-loglevel", "warning", "-f", inputFormat, "-i", device}
		if !keepStdin {
			args = append(args, "-nostdin")
		}
		return append(args,
			"-vn",
			"-f", "s16le",
			"-ac", strconv.Itoa(f.Channels),
			"-ar", strconv.Itoa(f.SampleRate),
			"pipe:1",
		)
	}
}

func arecordCapture(device string, f Format) []string {
	return []string{
		"-q",
		"-D", device,
		"-t", "raw",
		"-f", "S16_LE",
		"-c", strconv.Itoa(f.Channels),
		"-r", strconv.Itoa(f.SampleRate),
		"-",
	}
}
