package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestCalculateLevels_Silence(t *testing.T) {
	var data LevelData
	ProcessSamples(make([]byte, 960), &data)

	levels := CalculateLevels(&data)
	if levels.RMS != MinDB || levels.Peak != MinDB {
		t.Errorf("expected %v dB for silence, got rms=%v peak=%v", MinDB, levels.RMS, levels.Peak)
	}
	if data.SampleCount != 480 {
		t.Errorf("expected 480 samples, got %d", data.SampleCount)
	}
}

func TestCalculateLevels_FullScale(t *testing.T) {
	var data LevelData
	buf := make([]byte, 0, 8)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(32767))
	buf = binary.LittleEndian.AppendUint16(buf, 0x8000) // -32768

	ProcessSamples(buf, &data)
	levels := CalculateLevels(&data)

	if math.Abs(levels.Peak) > 0.01 {
		t.Errorf("expected ~0 dBFS peak, got %v", levels.Peak)
	}
	if levels.Clips != 2 {
		t.Errorf("expected 2 clipped samples, got %d", levels.Clips)
	}

	data.Reset()
	if data.SampleCount != 0 || data.Peak != 0 {
		t.Error("expected accumulators cleared after reset")
	}
}

func TestCalculateLevels_Empty(t *testing.T) {
	levels := CalculateLevels(&LevelData{})
	if levels.RMS != MinDB {
		t.Errorf("expected %v, got %v", MinDB, levels.RMS)
	}
}
