package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name string
		bins []uint8
		bars int
		want func(Frame) bool
	}{
		{
			name: "silence is floor",
			bins: make([]uint8, 128),
			bars: DefaultBars,
			want: func(f Frame) bool {
				for _, v := range f {
					if v != FloorLevel {
						return false
					}
				}
				return true
			},
		},
		{
			name: "full scale is ceiling",
			bins: filled(128, 255),
			bars: DefaultBars,
			want: func(f Frame) bool {
				for _, v := range f {
					if v != CeilLevel {
						return false
					}
				}
				return true
			},
		},
		{
			name: "fewer bins than bars is baseline",
			bins: filled(10, 200),
			bars: DefaultBars,
			want: func(f Frame) bool {
				return len(f) == DefaultBars && f[0] == FloorLevel
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.bins, tt.bars)
			if len(got) != tt.bars {
				t.Fatalf("expected %d bars, got %d", tt.bars, len(got))
			}
			if !tt.want(got) {
				t.Errorf("unexpected frame: %v", got)
			}
		})
	}
}

func TestReduce_BlockAverage(t *testing.T) {
	// 128 bins into 30 bars uses blocks of 4; the last 8 bins are ignored.
	bins := make([]uint8, 128)
	bins[0], bins[1], bins[2], bins[3] = 255, 255, 0, 0
	bins[127] = 255

	f := Reduce(bins, 30)
	if math.Abs(f[0]-0.5) > 1e-9 {
		t.Errorf("expected first bar 0.5, got %v", f[0])
	}
	if f[29] != FloorLevel {
		t.Errorf("expected trailing bins to be ignored, got %v", f[29])
	}
}

func TestReduce_AlwaysInRange(t *testing.T) {
	bins := make([]uint8, 128)
	for seed := range 256 {
		for i := range bins {
			bins[i] = uint8((seed*31 + i*17) % 256) //nolint:gosec // Bounded by modulo
		}
		for _, v := range Reduce(bins, DefaultBars) {
			if v < FloorLevel || v > CeilLevel {
				t.Fatalf("bar %v out of range for seed %d", v, seed)
			}
		}
	}
}

func TestBaseline(t *testing.T) {
	f := Baseline(DefaultBars)
	if len(f) != DefaultBars {
		t.Fatalf("expected %d bars, got %d", DefaultBars, len(f))
	}
	for i, v := range f {
		if v != FloorLevel {
			t.Errorf("bar %d: expected %v, got %v", i, FloorLevel, v)
		}
	}
}

func TestFrameClone(t *testing.T) {
	f := Baseline(3)
	c := f.Clone()
	c[0] = 0.9
	if f[0] != FloorLevel {
		t.Error("clone shares backing array with original")
	}
	if Frame(nil).Clone() != nil {
		t.Error("expected nil clone of nil frame")
	}
}

func filled(n int, v uint8) []uint8 {
	b := make([]uint8, n)
	for i := range b {
		b[i] = v
	}
	return b
}

// sinePCM returns S16LE mono samples of a sine wave.
func sinePCM(samples int, freq, sampleRate, amplitude float64) []byte {
	buf := make([]byte, 0, samples*BytesPerSample)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(v*32767))) //nolint:gosec // Bounded amplitude
	}
	return buf
}
