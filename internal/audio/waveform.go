package audio

const (
	// DefaultBars is the number of waveform bars drawn by the intake UI.
	DefaultBars = 30
	// FloorLevel keeps every bar visible, even during silence.
	FloorLevel = 0.1
	// CeilLevel is the full-height bar.
	CeilLevel = 1.0
)

// Frame is one waveform snapshot: bar heights in [FloorLevel, CeilLevel].
// A Frame is replaced wholesale on every sampler tick and never modified
// after it has been published.
type Frame []float64

// Baseline returns a flat frame of n bars at FloorLevel.
func Baseline(n int) Frame {
	f := make(Frame, n)
	for i := range f {
		f[i] = FloorLevel
	}
	return f
}

// Reduce partitions frequency bins into n equal-width blocks, averages each
// block and normalizes it to a bar height. Trailing bins that do not fill a
// whole block are ignored. With fewer bins than bars the result is Baseline.
func Reduce(bins []uint8, n int) Frame {
	if n <= 0 {
		return Frame{}
	}
	blockSize := len(bins) / n
	if blockSize == 0 {
		return Baseline(n)
	}

	f := make(Frame, n)
	for i := range f {
		sum := 0
		for _, b := range bins[i*blockSize : (i+1)*blockSize] {
			sum += int(b)
		}
		normalized := float64(sum) / float64(blockSize) / 255
		f[i] = min(max(normalized, FloorLevel), CeilLevel)
	}
	return f
}

// Clone returns a copy of the frame.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	return append(Frame(nil), f...)
}
