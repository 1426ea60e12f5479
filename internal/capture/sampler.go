package capture

import (
	"fmt"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
)

// Sampler turns the analysis view of live audio into waveform frames on a
// fixed cadence. It never sees the encoded output.
// It is not safe for concurrent use; the session loop owns it.
type Sampler struct {
	clock    Clock
	interval time.Duration
	bars     int
	analyser *audio.Analyser
	ticker   Ticker
	levels   audio.LevelData
	last     audio.Frame
	levelDB  float64
}

// NewSampler creates a stopped sampler producing frames of bars values.
func NewSampler(clock Clock, interval time.Duration, bars, fftSize int) (*Sampler, error) {
	if bars <= 0 {
		return nil, fmt.Errorf("bars must be positive, got %d", bars)
	}
	analyser, err := audio.NewAnalyser(fftSize)
	if err != nil {
		return nil, err
	}
	return &Sampler{
		clock:    clock,
		interval: interval,
		bars:     bars,
		analyser: analyser,
		last:     audio.Baseline(bars),
		levelDB:  audio.MinDB,
	}, nil
}

// Feed passes PCM to the analysis view.
func (s *Sampler) Feed(pcm []byte) {
	s.analyser.Write(pcm)
	audio.ProcessSamples(pcm, &s.levels)
}

// Start begins sampling. No-op if already running.
func (s *Sampler) Start() {
	if s.ticker != nil {
		return
	}
	s.ticker = s.clock.NewTicker(s.interval)
}

// Stop halts sampling. Stopping a stopped sampler is a no-op.
func (s *Sampler) Stop() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
}

// C returns the sampling channel, or nil when stopped.
func (s *Sampler) C() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C()
}

// Sample produces the next frame from the current spectrum and updates
// the input level.
func (s *Sampler) Sample() audio.Frame {
	s.last = audio.Reduce(s.analyser.ByteFrequencyData(), s.bars)
	if s.levels.SampleCount > 0 {
		s.levelDB = audio.CalculateLevels(&s.levels).RMS
		s.levels.Reset()
	}
	return s.last.Clone()
}

// Last returns the most recent frame.
func (s *Sampler) Last() audio.Frame {
	return s.last.Clone()
}

// Level returns the RMS input level in dBFS measured at the last Sample.
func (s *Sampler) Level() float64 {
	return s.levelDB
}

// Bars returns the frame length.
func (s *Sampler) Bars() int {
	return s.bars
}

// Reset stops sampling and returns to the baseline frame.
func (s *Sampler) Reset() {
	s.Stop()
	s.analyser.Reset()
	s.levels.Reset()
	s.last = audio.Baseline(s.bars)
	s.levelDB = audio.MinDB
}
