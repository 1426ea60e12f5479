package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyser defaults match a browser AnalyserNode so bar heights look the
// same as the web recorder they replace.
const (
	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

// Analyser produces frequency-domain snapshots of the most recent fftSize
// samples written to it. It is not safe for concurrent use.
type Analyser struct {
	size     int
	ring     []float64
	pos      int
	fft      *fourier.FFT
	scratch  []float64
	coeffs   []complex128
	smoothed []float64

	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

// NewAnalyser returns an analyser for the given FFT size, which must be a
// power of two between 32 and 32768.
func NewAnalyser(fftSize int) (*Analyser, error) {
	if fftSize < minFFTSize || fftSize > maxFFTSize || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("fft size %d: must be a power of two in [%d, %d]", fftSize, minFFTSize, maxFFTSize)
	}
	return &Analyser{
		size:        fftSize,
		ring:        make([]float64, fftSize),
		fft:         fourier.NewFFT(fftSize),
		scratch:     make([]float64, fftSize),
		coeffs:      make([]complex128, fftSize/2+1),
		smoothed:    make([]float64, fftSize/2),
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}, nil
}

// BinCount returns the number of frequency bins (half the FFT size).
func (a *Analyser) BinCount() int {
	return a.size / 2
}

// Write appends S16LE mono PCM to the time-domain window.
func (a *Analyser) Write(pcm []byte) {
	for i := 0; i+1 < len(pcm); i += BytesPerSample {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:])) //nolint:gosec // Reinterpreting PCM bits
		a.ring[a.pos] = float64(sample) / MaxSampleValue
		a.pos = (a.pos + 1) % a.size
	}
}

// ByteFrequencyData computes the current spectrum scaled to 0..255 per bin.
// Each call advances the smoothing state, like one animation frame would.
func (a *Analyser) ByteFrequencyData() []uint8 {
	// Oldest sample first.
	n := copy(a.scratch, a.ring[a.pos:])
	copy(a.scratch[n:], a.ring[:a.pos])

	window.Blackman(a.scratch)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.scratch)

	out := make([]uint8, a.BinCount())
	scale := 255 / (a.MaxDecibels - a.MinDecibels)
	for k := range out {
		magnitude := math.Hypot(real(a.coeffs[k]), imag(a.coeffs[k])) / float64(a.size)
		a.smoothed[k] = a.Smoothing*a.smoothed[k] + (1-a.Smoothing)*magnitude

		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(scale * (db - a.MinDecibels))
		out[k] = uint8(min(max(v, 0), 255))
	}
	return out
}

// Reset clears the sample window and smoothing history.
func (a *Analyser) Reset() {
	clear(a.ring)
	clear(a.smoothed)
	a.pos = 0
}
