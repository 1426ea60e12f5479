package capture

import "time"

// ElapsedTimer counts whole seconds of recording. Only ticks received while
// running are counted, so paused time is excluded.
// It is not safe for concurrent use; the session loop owns it.
type ElapsedTimer struct {
	clock    Clock
	interval time.Duration
	ticker   Ticker
	elapsed  int
}

// NewElapsedTimer creates a stopped timer at zero.
func NewElapsedTimer(clock Clock, interval time.Duration) *ElapsedTimer {
	return &ElapsedTimer{clock: clock, interval: interval}
}

// Start begins ticking. No-op if already running.
func (t *ElapsedTimer) Start() {
	if t.ticker != nil {
		return
	}
	t.ticker = t.clock.NewTicker(t.interval)
}

// Stop halts ticking and keeps the count.
func (t *ElapsedTimer) Stop() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	t.ticker = nil
}

// Running reports whether the timer is ticking.
func (t *ElapsedTimer) Running() bool {
	return t.ticker != nil
}

// C returns the tick channel, or nil when stopped so a select never fires.
func (t *ElapsedTimer) C() <-chan time.Time {
	if t.ticker == nil {
		return nil
	}
	return t.ticker.C()
}

// Tick records one elapsed interval and returns the new count.
func (t *ElapsedTimer) Tick() int {
	t.elapsed++
	return t.elapsed
}

// Elapsed returns the counted seconds.
func (t *ElapsedTimer) Elapsed() int {
	return t.elapsed
}

// Reset stops the timer and clears the count.
func (t *ElapsedTimer) Reset() {
	t.Stop()
	t.elapsed = 0
}
