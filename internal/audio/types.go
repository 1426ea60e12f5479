package audio

// PCM capture format. Symptom capture is voice only, so the hardware
// boundary always delivers a single channel of signed 16-bit little-endian
// samples.
const (
	// DefaultSampleRate is the capture sample rate in Hz.
	DefaultSampleRate = 48000
	// Channels is the number of captured channels (mono).
	Channels = 1
	// BytesPerSample is the size of one S16LE sample.
	BytesPerSample = 2
)

// Format describes a PCM stream delivered by the hardware boundary.
type Format struct {
	// SampleRate is the number of samples per second.
	SampleRate int `json:"sample_rate"`
	// Channels is the number of interleaved channels.
	Channels int `json:"channels"`
}

// DefaultFormat returns mono S16LE at DefaultSampleRate.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: Channels}
}

// BytesPerSecond returns the PCM byte rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * BytesPerSample
}

// Device represents an available audio input device.
type Device struct {
	// ID is the device identifier.
	ID string `json:"id"`
	// Name is the device display name.
	Name string `json:"name"`
}
