package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
)

const notifyTimeout = 10 * time.Second

// Controller is the entry point used by intake flows. It wraps a Session,
// raises failures to the notifier, and fans transitions out to observers.
type Controller struct {
	session   *Session
	notifier  Notifier
	observers []func(Transition)
}

type options struct {
	clock           Clock
	notifier        Notifier
	observers       []func(Transition)
	timerInterval   time.Duration
	samplerInterval time.Duration
	bars            int
	fftSize         int
	maxDuration     int
}

// Option configures a Controller.
type Option func(*options)

// WithClock replaces the system clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithNotifier sets where failure notices go.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithObserver adds a transition observer. Observers run on the session
// goroutine and must return quickly.
func WithObserver(fn func(Transition)) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

// WithTimerInterval overrides the elapsed timer cadence.
func WithTimerInterval(d time.Duration) Option {
	return func(o *options) { o.timerInterval = d }
}

// WithSamplerInterval overrides the waveform sampling cadence.
func WithSamplerInterval(d time.Duration) Option {
	return func(o *options) { o.samplerInterval = d }
}

// WithBars sets the waveform frame length.
func WithBars(n int) Option {
	return func(o *options) { o.bars = n }
}

// WithFFTSize sets the analysis window size.
func WithFFTSize(n int) Option {
	return func(o *options) { o.fftSize = n }
}

// WithMaxDuration stops recordings automatically after seconds.
func WithMaxDuration(seconds int) Option {
	return func(o *options) { o.maxDuration = seconds }
}

// NewController creates a controller in the idle state.
func NewController(mic Microphone, encoders EncoderFactory, opts ...Option) (*Controller, error) {
	o := options{
		clock:           SystemClock(),
		timerInterval:   DefaultTimerInterval,
		samplerInterval: DefaultSamplerInterval,
		bars:            audio.DefaultBars,
		fftSize:         audio.DefaultFFTSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		notifier:  o.notifier,
		observers: o.observers,
	}

	session, err := NewSession(SessionConfig{
		Microphone:      mic,
		Encoders:        encoders,
		Clock:           o.clock,
		TimerInterval:   o.timerInterval,
		SamplerInterval: o.samplerInterval,
		Bars:            o.bars,
		FFTSize:         o.fftSize,
		MaxDuration:     o.maxDuration,
		Observe:         c.onTransition,
	})
	if err != nil {
		return nil, err
	}
	c.session = session
	return c, nil
}

// Start requests the microphone and waits until recording begins or the
// request fails. Cancelling ctx abandons the request.
func (c *Controller) Start(ctx context.Context) error {
	outcome, err := c.session.Start()
	if err != nil {
		return err
	}
	select {
	case err := <-outcome:
		return err
	case <-ctx.Done():
		c.session.cancel()
		// The request may have settled before the cancel landed.
		if err := <-outcome; !errors.Is(err, ErrCancelled) {
			return err
		}
		return ctx.Err()
	}
}

// Pause suspends recording.
func (c *Controller) Pause() error {
	return c.session.Pause()
}

// Resume continues a paused recording.
func (c *Controller) Resume() error {
	return c.session.Resume()
}

// Stop finalizes the recording and returns the artifact.
func (c *Controller) Stop() (*Artifact, error) {
	return c.session.Stop()
}

// Reset clears a stopped or failed session back to idle.
func (c *Controller) Reset() error {
	return c.session.Reset()
}

// Status returns the current observable state.
func (c *Controller) Status() Status {
	return c.session.Status()
}

// State returns the current state.
func (c *Controller) State() State {
	return c.session.Status().State
}

// Elapsed returns recorded seconds.
func (c *Controller) Elapsed() int {
	return c.session.Status().Elapsed
}

// Frame returns the waveform frame to render.
func (c *Controller) Frame() audio.Frame {
	return c.session.Status().Frame
}

// Artifact returns the finished recording, or nil unless stopped.
func (c *Controller) Artifact() *Artifact {
	_, art := c.session.Snapshot()
	return art
}

// Subscribe streams status updates. Call the returned function to stop.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	return c.session.Subscribe()
}

// Close releases all resources.
func (c *Controller) Close() error {
	return c.session.Close()
}

func (c *Controller) onTransition(t Transition) {
	for _, fn := range c.observers {
		fn(t)
	}

	if t.Reason == "" || c.notifier == nil {
		return
	}

	notice := Notice{Session: t.Session, Reason: t.Reason, Err: t.Err, At: t.At}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		c.notifier.Notify(ctx, notice)
	}()
	slog.Debug("failure notice raised", "session", t.Session, "reason", t.Reason)
}
