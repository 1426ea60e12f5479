// Package mock provides in-memory microphones, encoders, and clocks for
// exercising capture sessions without hardware.
package mock

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

// Microphone hands out Streams and counts acquisitions and releases.
type Microphone struct {
	// Err is returned from Open when set.
	Err error
	// Gate, when set, holds Open until it is closed. The context is ignored
	// so late grants can be exercised.
	Gate chan struct{}

	mu       sync.Mutex
	acquired int
	released int
	streams  []*Stream
}

// Open implements capture.Microphone.
func (m *Microphone) Open(_ context.Context) (capture.Stream, error) {
	if m.Gate != nil {
		<-m.Gate
	}
	if m.Err != nil {
		return nil, m.Err
	}

	s := &Stream{
		mic:    m,
		data:   make(chan []byte, 256),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}

	m.mu.Lock()
	m.acquired++
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s, nil
}

// Acquired returns the number of streams handed out.
func (m *Microphone) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

// Released returns the number of streams closed.
func (m *Microphone) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Stream returns the most recently opened stream, or nil.
func (m *Microphone) Stream() *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		return nil
	}
	return m.streams[len(m.streams)-1]
}

// WaitBalanced waits until every acquired stream has been released.
func (m *Microphone) WaitBalanced(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		ok := m.acquired == m.released
		m.mu.Unlock()
		if ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *Microphone) release() {
	m.mu.Lock()
	m.released++
	m.mu.Unlock()
}

// Stream is a fake PCM source fed by Push.
type Stream struct {
	mic     *Microphone
	data    chan []byte
	fail    chan error
	closed  chan struct{}
	once    sync.Once
	pending []byte
}

// Push queues PCM to be read.
func (s *Stream) Push(pcm []byte) {
	s.data <- pcm
}

// Disconnect makes the next Read fail with err, as when a device is unplugged.
func (s *Stream) Disconnect(err error) {
	s.fail <- err
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Read implements capture.Stream. Pushed data is always read before EOF.
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}

	select {
	case b := <-s.data:
		return s.fill(p, b), nil
	default:
	}

	select {
	case b := <-s.data:
		return s.fill(p, b), nil
	case err := <-s.fail:
		return 0, err
	case <-s.closed:
		return 0, io.EOF
	}
}

func (s *Stream) fill(p, b []byte) int {
	n := copy(p, b)
	s.pending = b[n:]
	return n
}

// Format implements capture.Stream.
func (s *Stream) Format() audio.Format {
	return audio.DefaultFormat()
}

// Close implements capture.Stream.
func (s *Stream) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.mic.release()
	})
	return nil
}

// EncoderFactory creates Encoders that pass PCM through unchanged.
type EncoderFactory struct {
	// Err is returned from NewEncoder when set.
	Err error
	// ContentTypeValue and ExtensionValue default to audio/webm and webm.
	ContentTypeValue string
	ExtensionValue   string

	mu       sync.Mutex
	encoders []*Encoder
}

// NewEncoder implements capture.EncoderFactory.
func (f *EncoderFactory) NewEncoder(format audio.Format, sink capture.Sink) (capture.Encoder, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	e := &Encoder{
		sink:        sink,
		contentType: f.ContentTypeValue,
		extension:   f.ExtensionValue,
	}
	if e.contentType == "" {
		e.contentType = "audio/webm"
	}
	if e.extension == "" {
		e.extension = "webm"
	}

	f.mu.Lock()
	f.encoders = append(f.encoders, e)
	f.mu.Unlock()
	return e, nil
}

// Last returns the most recent encoder, or nil.
func (f *EncoderFactory) Last() *Encoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.encoders) == 0 {
		return nil
	}
	return f.encoders[len(f.encoders)-1]
}

// Open returns the number of encoders not yet closed.
func (f *EncoderFactory) Open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.encoders {
		if !e.isClosed() {
			n++
		}
	}
	return n
}

// Encoder delivers every other write immediately and holds the rest until
// Flush, so artifacts mix streamed and flushed output.
type Encoder struct {
	sink        capture.Sink
	contentType string
	extension   string

	mu       sync.Mutex
	writes   int
	held     []byte
	flushed  bool
	closed   bool
	writeErr error
}

// SetWriteErr makes subsequent writes fail with err.
func (e *Encoder) SetWriteErr(err error) {
	e.mu.Lock()
	e.writeErr = err
	e.mu.Unlock()
}

// Write implements capture.Encoder.
func (e *Encoder) Write(pcm []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.writeErr != nil {
		return e.writeErr
	}
	if e.flushed || e.closed {
		return errors.New("encoder finished")
	}
	e.writes++
	if e.writes%2 == 1 {
		e.sink.Deliver(pcm)
		return nil
	}
	e.held = append(e.held, pcm...)
	return nil
}

// Fail reports an asynchronous encoder failure to the session.
func (e *Encoder) Fail(err error) {
	e.sink.Fail(err)
}

// Flush implements capture.Encoder.
func (e *Encoder) Flush() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flushed {
		return nil, nil
	}
	e.flushed = true
	tail := e.held
	e.held = nil
	return tail, nil
}

// Close implements capture.Encoder.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Writes returns the number of PCM chunks written.
func (e *Encoder) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}

// WaitWrites waits until at least n chunks have been written.
func (e *Encoder) WaitWrites(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for e.Writes() < n {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

func (e *Encoder) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// ContentType implements capture.Encoder.
func (e *Encoder) ContentType() string { return e.contentType }

// Extension implements capture.Encoder.
func (e *Encoder) Extension() string { return e.extension }

// Clock is a manual clock. Tickers only fire when the test calls Fire.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ticker
}

// NewClock returns a clock fixed at a known instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}
}

// Now implements capture.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker implements capture.Clock.
func (c *Clock) NewTicker(d time.Duration) capture.Ticker {
	t := &ticker{clock: c, period: d, ch: make(chan time.Time)}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Fire advances the clock by d and delivers one tick to every running
// ticker with period d. It returns the number of ticks delivered; a tick
// is delivered only once the receiver has taken it.
func (c *Clock) Fire(d time.Duration) int {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var targets []*ticker
	for _, t := range c.tickers {
		if t.period == d && !t.stopped {
			targets = append(targets, t)
		}
	}
	c.mu.Unlock()

	delivered := 0
	for _, t := range targets {
		select {
		case t.ch <- now:
			delivered++
		case <-time.After(time.Second):
		}
	}
	return delivered
}

// Running returns the number of running tickers with period d.
func (c *Clock) Running(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if t.period == d && !t.stopped {
			n++
		}
	}
	return n
}

type ticker struct {
	clock   *Clock
	period  time.Duration
	ch      chan time.Time
	stopped bool
}

func (t *ticker) C() <-chan time.Time {
	return t.ch
}

func (t *ticker) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
}

// Notifier records notices.
type Notifier struct {
	mu      sync.Mutex
	notices []capture.Notice
	ch      chan capture.Notice
}

// NewNotifier creates a recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan capture.Notice, 16)}
}

// Notify implements capture.Notifier.
func (n *Notifier) Notify(_ context.Context, notice capture.Notice) {
	n.mu.Lock()
	n.notices = append(n.notices, notice)
	n.mu.Unlock()
	n.ch <- notice
}

// Wait returns the next notice or false after timeout.
func (n *Notifier) Wait(timeout time.Duration) (capture.Notice, bool) {
	select {
	case notice := <-n.ch:
		return notice, true
	case <-time.After(timeout):
		return capture.Notice{}, false
	}
}
