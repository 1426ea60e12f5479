// Package audio provides the PCM analysis used by symptom capture: level
// metering, a spectrum analyser view and waveform bar reduction.
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// MinDB is the minimum dB level (silence).
	MinDB = -60.0
	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
	// ClipThreshold is slightly below max to catch near-clips.
	ClipThreshold int16 = 32760
)

// LevelData holds raw sample accumulator data for level calculation.
type LevelData struct {
	SumSquares  float64
	Peak        float64
	ClipCount   int
	SampleCount int
}

// ProcessSamples accumulates level data from S16LE mono PCM.
func ProcessSamples(buf []byte, data *LevelData) {
	for i := 0; i+1 < len(buf); i += BytesPerSample {
		sample := int16(binary.LittleEndian.Uint16(buf[i:])) //nolint:gosec // Reinterpreting PCM bits
		v := float64(sample)

		data.SumSquares += v * v
		if abs := math.Abs(v); abs > data.Peak {
			data.Peak = abs
		}
		if sample >= ClipThreshold || sample <= -ClipThreshold {
			data.ClipCount++
		}
		data.SampleCount++
	}
}

// Levels contains calculated audio levels in dBFS.
type Levels struct {
	RMS   float64 `json:"rms_db"`
	Peak  float64 `json:"peak_db"`
	Clips int     `json:"clips,omitzero"`
}

// CalculateLevels computes RMS and peak levels from accumulated sample data.
func CalculateLevels(data *LevelData) Levels {
	if data.SampleCount == 0 {
		return Levels{RMS: MinDB, Peak: MinDB}
	}

	rms := math.Sqrt(data.SumSquares / float64(data.SampleCount))

	return Levels{
		RMS:   max(20*math.Log10(rms/MaxSampleValue), MinDB),
		Peak:  max(20*math.Log10(data.Peak/MaxSampleValue), MinDB),
		Clips: data.ClipCount,
	}
}

// Reset resets accumulators for the next measurement period.
func (d *LevelData) Reset() {
	*d = LevelData{}
}
