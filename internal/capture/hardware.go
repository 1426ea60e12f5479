package capture

import (
	"context"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
)

// Microphone acquires exclusive access to an audio input.
type Microphone interface {
	// Open requests access and returns a live stream. The context bounds
	// the request only; the returned stream must outlive it. Errors should
	// wrap ErrPermissionDenied or ErrDeviceUnavailable.
	Open(ctx context.Context) (Stream, error)
}

// Stream is a live source of S16LE PCM. Read must return an error once
// Close has been called. Close must be safe to call more than once.
type Stream interface {
	Read(p []byte) (int, error)
	Format() audio.Format
	Close() error
}

// Sink receives encoder output as it becomes available.
type Sink interface {
	// Deliver passes a chunk of container bytes. The chunk may be reused
	// by the caller after Deliver returns.
	Deliver(chunk []byte)
	// Fail reports that the encoder can no longer produce output.
	Fail(err error)
}

// Encoder turns PCM into a compressed container.
type Encoder interface {
	// Write feeds PCM to the encoder.
	Write(pcm []byte) error
	// Flush finishes the container and returns output not yet delivered
	// to the sink. No Deliver calls happen after Flush returns.
	Flush() ([]byte, error)
	// Close releases the encoder. Safe to call after Flush and more than once.
	Close() error
	ContentType() string
	Extension() string
}

// EncoderFactory creates an encoder for one session.
type EncoderFactory interface {
	NewEncoder(format audio.Format, sink Sink) (Encoder, error)
}

// Finalizer is implemented by encoders whose output needs a rewrite once
// the full length is known, such as WAV header sizes.
type Finalizer interface {
	Finalize(data []byte) []byte
}

// Notifier receives failure notices. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}
