package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
)

const (
	// DefaultTimerInterval is the elapsed timer cadence.
	DefaultTimerInterval = time.Second
	// DefaultSamplerInterval is roughly one frame per display refresh at 30 Hz.
	DefaultSamplerInterval = 33 * time.Millisecond

	readerShutdownTimeout = 2 * time.Second
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Microphone      Microphone
	Encoders        EncoderFactory
	Clock           Clock
	TimerInterval   time.Duration
	SamplerInterval time.Duration
	Bars            int
	FFTSize         int
	// MaxDuration stops the recording automatically after this many
	// seconds. Zero means unlimited.
	MaxDuration int
	// Observe is called from the session goroutine on every transition.
	// It must not call back into the session.
	Observe func(Transition)
}

// Session is the recording state machine. A single goroutine owns all
// state and resources; public methods post messages to it and wait for
// the reply, so calls from any goroutine are serialized.
type Session struct {
	mic      Microphone
	encoders EncoderFactory
	clock    Clock
	maxDur   int
	observe  func(Transition)

	mailbox *mailbox
	done    chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan Status
	nextSub int
	last    Status

	// Owned by the loop goroutine.
	state         State
	reason        Reason
	id            string
	gen           uint64
	cancelAcquire context.CancelFunc
	pendingStart  chan error
	stream        Stream
	readerDone    chan struct{}
	encoder       Encoder
	encoded       []byte
	artifact      *Artifact
	timer         *ElapsedTimer
	sampler       *Sampler
	frame         audio.Frame
}

type op int

const (
	opPause op = iota
	opResume
	opStop
	opReset
	opCancel
	opSnapshot
	opClose
)

var opNames = map[op]string{
	opPause:    "pause",
	opResume:   "resume",
	opStop:     "stop",
	opReset:    "reset",
	opCancel:   "cancel",
	opSnapshot: "snapshot",
	opClose:    "close",
}

type opCmd struct {
	op    op
	reply chan opResult
}

type opResult struct {
	status   Status
	artifact *Artifact
	err      error
}

type startCmd struct {
	reply chan startResult
}

type startResult struct {
	outcome <-chan error
	err     error
}

type accessResult struct {
	gen    uint64
	stream Stream
	err    error
}

type pcmChunk struct {
	gen  uint64
	data []byte
}

type streamEnded struct {
	gen uint64
	err error
}

type encodedChunk struct {
	gen  uint64
	data []byte
}

type encoderFailed struct {
	gen uint64
	err error
}

// NewSession creates an idle session and starts its goroutine.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Microphone == nil {
		return nil, errors.New("microphone is required")
	}
	if cfg.Encoders == nil {
		return nil, errors.New("encoder factory is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.TimerInterval <= 0 {
		cfg.TimerInterval = DefaultTimerInterval
	}
	if cfg.SamplerInterval <= 0 {
		cfg.SamplerInterval = DefaultSamplerInterval
	}
	if cfg.Bars <= 0 {
		cfg.Bars = audio.DefaultBars
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = audio.DefaultFFTSize
	}
	if cfg.MaxDuration < 0 {
		return nil, fmt.Errorf("max duration must not be negative, got %d", cfg.MaxDuration)
	}

	sampler, err := NewSampler(cfg.Clock, cfg.SamplerInterval, cfg.Bars, cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	s := &Session{
		mic:      cfg.Microphone,
		encoders: cfg.Encoders,
		clock:    cfg.Clock,
		maxDur:   cfg.MaxDuration,
		observe:  cfg.Observe,
		mailbox:  newMailbox(),
		done:     make(chan struct{}),
		subs:     make(map[int]chan Status),
		state:    StateIdle,
		timer:    NewElapsedTimer(cfg.Clock, cfg.TimerInterval),
		sampler:  sampler,
		frame:    audio.Baseline(cfg.Bars),
	}
	s.last = s.status()

	go s.run()
	return s, nil
}

// Start requests microphone access. It returns once the request is under
// way; the outcome channel yields nil when recording begins or the error
// that ended the attempt.
func (s *Session) Start() (<-chan error, error) {
	reply := make(chan startResult, 1)
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	s.mailbox.post(startCmd{reply: reply})
	select {
	case r := <-reply:
		return r.outcome, r.err
	case <-s.done:
		return nil, ErrClosed
	}
}

// Pause suspends capture. Only valid while recording.
func (s *Session) Pause() error {
	return s.call(opPause).err
}

// Resume continues a paused recording.
func (s *Session) Resume() error {
	return s.call(opResume).err
}

// Stop finalizes the recording and returns its artifact. Stopping a
// stopped session returns the same artifact. Stopping a pending request
// cancels it and returns ErrCancelled.
func (s *Session) Stop() (*Artifact, error) {
	r := s.call(opStop)
	return r.artifact, r.err
}

// Reset discards the artifact or failure and returns to idle.
func (s *Session) Reset() error {
	return s.call(opReset).err
}

// cancel abandons a pending request. No-op in any other state.
func (s *Session) cancel() {
	s.call(opCancel)
}

// Status returns the current status. After Close it returns the last
// published status.
func (s *Session) Status() Status {
	st, _ := s.Snapshot()
	return st
}

// Snapshot returns the current status and artifact together.
func (s *Session) Snapshot() (Status, *Artifact) {
	r := s.call(opSnapshot)
	if r.err != nil {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		return s.last, nil
	}
	return r.status, r.artifact
}

// Subscribe returns a channel that always holds the latest status. Slow
// readers miss intermediate updates, never the most recent one.
func (s *Session) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.last
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Close releases all resources and stops the session goroutine. Any
// recording in progress is discarded.
func (s *Session) Close() error {
	r := s.call(opClose)
	if errors.Is(r.err, ErrClosed) {
		return nil
	}
	return r.err
}

func (s *Session) call(o op) opResult {
	reply := make(chan opResult, 1)
	select {
	case <-s.done:
		return opResult{err: ErrClosed}
	default:
	}
	s.mailbox.post(opCmd{op: o, reply: reply})
	select {
	case r := <-reply:
		return r
	case <-s.done:
		return opResult{err: ErrClosed}
	}
}

func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case <-s.mailbox.signal:
			for {
				msg, ok := s.mailbox.pop()
				if !ok {
					break
				}
				if s.handle(msg) {
					return
				}
			}
		case <-s.timer.C():
			s.onTimerTick()
		case <-s.sampler.C():
			s.onSamplerTick()
		}
	}
}

// handle processes one message and reports whether the loop should exit.
func (s *Session) handle(msg any) bool {
	switch m := msg.(type) {
	case startCmd:
		m.reply <- s.start()
	case opCmd:
		r := s.dispatch(m.op)
		m.reply <- r
		return m.op == opClose
	case accessResult:
		s.onAccess(m)
	case pcmChunk:
		s.onPCM(m)
	case encodedChunk:
		if m.gen == s.gen && s.encoder != nil {
			s.encoded = append(s.encoded, m.data...)
		}
	case streamEnded:
		if m.gen == s.gen && (s.state == StateRecording || s.state == StatePaused) {
			s.interrupt(ReasonDeviceUnavailable, fmt.Errorf("%w: %w", ErrDeviceUnavailable, m.err))
		}
	case encoderFailed:
		if m.gen == s.gen && (s.state == StateRecording || s.state == StatePaused) {
			s.interrupt(ReasonEncoderError, m.err)
		}
	}
	return false
}

func (s *Session) dispatch(o op) opResult {
	switch o {
	case opPause:
		return opResult{err: s.pause()}
	case opResume:
		return opResult{err: s.resume()}
	case opStop:
		art, err := s.stop()
		return opResult{artifact: art, err: err}
	case opReset:
		return opResult{err: s.reset()}
	case opCancel:
		if s.state == StateRequesting {
			s.abandonRequest()
		}
		return opResult{}
	case opSnapshot:
		return opResult{status: s.status(), artifact: s.artifact}
	case opClose:
		s.shutdown()
		return opResult{}
	}
	return opResult{err: fmt.Errorf("unknown operation %s", o)}
}

func (s *Session) start() startResult {
	if s.state != StateIdle {
		return startResult{err: &TransitionError{Op: "start", From: s.state}}
	}

	s.gen++
	s.id = uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelAcquire = cancel
	outcome := make(chan error, 1)
	s.pendingStart = outcome

	s.transition(StateRequesting, "", nil)

	gen := s.gen
	go func() {
		stream, err := s.mic.Open(ctx)
		s.mailbox.post(accessResult{gen: gen, stream: stream, err: err})
	}()

	return startResult{outcome: outcome}
}

func (s *Session) onAccess(m accessResult) {
	if m.gen != s.gen || s.state != StateRequesting {
		// Granted after the request was abandoned.
		if m.stream != nil {
			if err := m.stream.Close(); err != nil {
				slog.Warn("failed to release late microphone grant", "error", err)
			}
		}
		return
	}

	s.cancelAcquire()
	s.cancelAcquire = nil

	if m.err != nil {
		if m.stream != nil {
			_ = m.stream.Close()
		}
		s.fail(&AcquisitionError{Reason: acquisitionReason(m.err), Err: m.err})
		return
	}

	enc, err := s.encoders.NewEncoder(m.stream.Format(), encoderSink{mailbox: s.mailbox, gen: s.gen})
	if err != nil {
		if cerr := m.stream.Close(); cerr != nil {
			slog.Warn("failed to release microphone", "error", cerr)
		}
		s.fail(&EncodingError{Reason: ReasonEncoderError, Err: err})
		return
	}

	s.stream = m.stream
	s.encoder = enc
	s.encoded = nil
	s.readerDone = make(chan struct{})
	go readStream(m.stream, s.mailbox, s.gen, s.readerDone)

	s.timer.Reset()
	s.timer.Start()
	s.sampler.Reset()
	s.sampler.Start()
	s.frame = audio.Baseline(s.sampler.Bars())

	s.transition(StateRecording, "", nil)
	s.resolveStart(nil)
}

func (s *Session) onPCM(m pcmChunk) {
	if m.gen != s.gen || s.state != StateRecording {
		return
	}
	if err := s.encoder.Write(m.data); err != nil {
		s.interrupt(ReasonEncoderError, err)
		return
	}
	s.sampler.Feed(m.data)
}

func (s *Session) onTimerTick() {
	if s.state != StateRecording {
		return
	}
	elapsed := s.timer.Tick()
	if s.maxDur > 0 && elapsed >= s.maxDur {
		slog.Info("maximum recording duration reached", "session", s.id, "seconds", elapsed)
		if _, err := s.stop(); err != nil {
			slog.Warn("automatic stop failed", "session", s.id, "error", err)
		}
		return
	}
	s.publish()
}

func (s *Session) onSamplerTick() {
	if s.state != StateRecording {
		return
	}
	s.frame = s.sampler.Sample()
	s.publish()
}

func (s *Session) pause() error {
	if s.state != StateRecording {
		return &TransitionError{Op: "pause", From: s.state}
	}
	s.timer.Stop()
	s.sampler.Stop()
	s.transition(StatePaused, "", nil)
	return nil
}

func (s *Session) resume() error {
	if s.state != StatePaused {
		return &TransitionError{Op: "resume", From: s.state}
	}
	s.timer.Start()
	s.sampler.Start()
	s.transition(StateRecording, "", nil)
	return nil
}

func (s *Session) stop() (*Artifact, error) {
	switch s.state {
	case StateStopped:
		return s.artifact, nil
	case StateRequesting:
		s.abandonRequest()
		return nil, ErrCancelled
	case StateRecording, StatePaused:
		art, err := s.finalize()
		if err != nil {
			encErr := &EncodingError{Reason: ReasonEncoderError, Err: err}
			s.fail(encErr)
			return nil, encErr
		}
		s.artifact = art
		s.transition(StateStopped, "", nil)
		return art, nil
	default:
		return nil, &TransitionError{Op: "stop", From: s.state}
	}
}

func (s *Session) reset() error {
	if s.state != StateStopped && s.state != StateFailed {
		return &TransitionError{Op: "reset", From: s.state}
	}
	s.artifact = nil
	s.timer.Reset()
	s.sampler.Reset()
	s.frame = audio.Baseline(s.sampler.Bars())
	s.transition(StateIdle, "", nil)
	s.id = ""
	s.publish()
	return nil
}

// abandonRequest cancels a pending acquisition and returns to idle. A
// grant arriving later is released on arrival.
func (s *Session) abandonRequest() {
	s.cancelAcquire()
	s.cancelAcquire = nil
	s.gen++
	s.transition(StateIdle, "", ErrCancelled)
	s.id = ""
	s.resolveStart(ErrCancelled)
}

// interrupt ends a live session that lost its stream or encoder. Audio
// captured so far is kept when there is any.
func (s *Session) interrupt(reason Reason, cause error) {
	slog.Warn("recording interrupted", "session", s.id, "reason", reason, "error", cause)

	art, err := s.finalize()
	if err != nil {
		s.fail(&EncodingError{Reason: reason, Err: cause})
		return
	}
	s.artifact = art
	s.transition(StateStopped, reason, cause)
}

// finalize releases the stream and encoder, drains audio still in flight,
// and assembles the artifact. Resources are always released.
func (s *Session) finalize() (*Artifact, error) {
	s.timer.Stop()
	s.sampler.Stop()
	wasRecording := s.state == StateRecording
	gen := s.gen

	s.releaseStream()

	// PCM read before the stream closed belongs to the recording.
	for _, msg := range s.mailbox.take(func(msg any) bool {
		c, ok := msg.(pcmChunk)
		return ok && c.gen == gen
	}) {
		if !wasRecording {
			continue
		}
		if err := s.encoder.Write(msg.(pcmChunk).data); err != nil {
			slog.Warn("failed to encode trailing audio", "session", s.id, "error", err)
			break
		}
	}

	enc := s.encoder
	tail, flushErr := enc.Flush()
	if err := enc.Close(); err != nil {
		slog.Warn("failed to close encoder", "session", s.id, "error", err)
	}
	s.encoder = nil

	for _, msg := range s.mailbox.take(func(msg any) bool {
		c, ok := msg.(encodedChunk)
		return ok && c.gen == gen
	}) {
		s.encoded = append(s.encoded, msg.(encodedChunk).data...)
	}
	data := append(s.encoded, tail...)
	s.encoded = nil

	// Anything still queued for this generation is now stale.
	s.gen++

	if flushErr != nil {
		slog.Warn("encoder flush failed", "session", s.id, "error", flushErr)
	}
	if len(data) == 0 {
		if flushErr != nil {
			return nil, flushErr
		}
		return nil, ErrNoAudio
	}
	if f, ok := enc.(Finalizer); ok {
		data = f.Finalize(data)
	}
	return NewArtifact(data, enc.ContentType(), enc.Extension(), s.timer.Elapsed(), s.clock.Now()), nil
}

func (s *Session) releaseStream() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		slog.Warn("failed to release microphone", "session", s.id, "error", err)
	}
	select {
	case <-s.readerDone:
	case <-time.After(readerShutdownTimeout):
		slog.Warn("microphone reader did not exit", "session", s.id)
	}
	s.stream = nil
	s.readerDone = nil
}

// shutdown releases everything without producing an artifact.
func (s *Session) shutdown() {
	switch s.state {
	case StateRequesting:
		s.abandonRequest()
	case StateRecording, StatePaused:
		s.timer.Stop()
		s.sampler.Stop()
		s.releaseStream()
		if err := s.encoder.Close(); err != nil {
			slog.Warn("failed to close encoder", "session", s.id, "error", err)
		}
		s.encoder = nil
		s.encoded = nil
		s.gen++
		s.transition(StateIdle, "", ErrClosed)
	}
	s.timer.Reset()
	s.sampler.Reset()
}

func (s *Session) fail(err error) {
	reason, _ := ReasonOf(err)
	s.timer.Stop()
	s.sampler.Stop()
	s.frame = audio.Baseline(s.sampler.Bars())
	s.transition(StateFailed, reason, err)
	s.resolveStart(err)
}

func (s *Session) resolveStart(err error) {
	if s.pendingStart == nil {
		return
	}
	s.pendingStart <- err
	s.pendingStart = nil
}

func (s *Session) transition(to State, reason Reason, err error) {
	from := s.state
	s.state = to
	s.reason = reason

	slog.Info("capture state changed", "session", s.id, "from", from, "to", to)

	if s.observe != nil {
		s.observe(Transition{
			Session:  s.id,
			From:     from,
			To:       to,
			Reason:   reason,
			Err:      err,
			Elapsed:  s.timer.Elapsed(),
			Artifact: s.artifact.Info(),
			At:       s.clock.Now(),
		})
	}
	s.publish()
}

func (s *Session) status() Status {
	st := Status{
		Session: s.id,
		State:   s.state,
		Reason:  s.reason,
		Elapsed: s.timer.Elapsed(),
		LevelDB: audio.MinDB,
	}
	switch s.state {
	case StateRecording:
		st.Frame = s.frame.Clone()
		st.LevelDB = s.sampler.Level()
	case StateStopped:
		st.Frame = s.frame.Clone()
		st.Dimmed = true
		st.Artifact = s.artifact.Info()
	default:
		st.Frame = audio.Baseline(s.sampler.Bars())
	}
	return st
}

func (s *Session) publish() {
	st := s.status()

	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.last = st
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

type encoderSink struct {
	mailbox *mailbox
	gen     uint64
}

func (k encoderSink) Deliver(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	k.mailbox.post(encodedChunk{gen: k.gen, data: bytes.Clone(chunk)})
}

func (k encoderSink) Fail(err error) {
	k.mailbox.post(encoderFailed{gen: k.gen, err: err})
}

// readStream pumps PCM from the stream into the mailbox until Read fails.
func readStream(stream Stream, mb *mailbox, gen uint64, done chan<- struct{}) {
	defer close(done)

	size := max(stream.Format().BytesPerSecond()/50, 256)
	buf := make([]byte, size)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			mb.post(pcmChunk{gen: gen, data: bytes.Clone(buf[:n])})
		}
		if err != nil {
			mb.post(streamEnded{gen: gen, err: err})
			return
		}
	}
}

func (o op) String() string {
	return opNames[o]
}
