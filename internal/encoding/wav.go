package encoding

import (
	"encoding/binary"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
)

// wavHeaderSize is the size of a canonical PCM RIFF header.
const wavHeaderSize = 44

// WAVEncoder streams PCM as WAV. The header is sent with placeholder sizes
// and patched by Finalize once the length is known.
type WAVEncoder struct {
	format     audio.Format
	sink       capture.Sink
	headerSent bool
	finished   bool
}

// NewWAVEncoder creates a WAV encoder delivering to sink.
func NewWAVEncoder(format audio.Format, sink capture.Sink) *WAVEncoder {
	return &WAVEncoder{format: format, sink: sink}
}

// Write implements capture.Encoder.
func (e *WAVEncoder) Write(pcm []byte) error {
	if e.finished {
		return errEncoderFinished
	}
	if len(pcm) == 0 {
		return nil
	}
	if !e.headerSent {
		e.sink.Deliver(wavHeader(e.format, 0))
		e.headerSent = true
	}
	e.sink.Deliver(pcm)
	return nil
}

// Flush implements capture.Encoder. All output has already been delivered.
func (e *WAVEncoder) Flush() ([]byte, error) {
	e.finished = true
	return nil, nil
}

// Close implements capture.Encoder.
func (e *WAVEncoder) Close() error {
	e.finished = true
	return nil
}

// ContentType implements capture.Encoder.
func (e *WAVEncoder) ContentType() string { return "audio/wav" }

// Extension implements capture.Encoder.
func (e *WAVEncoder) Extension() string { return "wav" }

// Finalize implements capture.Finalizer by writing the real chunk sizes.
func (e *WAVEncoder) Finalize(data []byte) []byte {
	if len(data) < wavHeaderSize {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)
	dataSize := uint32(len(out) - wavHeaderSize) //nolint:gosec // Recordings stay far below 4 GiB
	binary.LittleEndian.PutUint32(out[4:8], dataSize+wavHeaderSize-8)
	binary.LittleEndian.PutUint32(out[40:44], dataSize)
	return out
}

func wavHeader(format audio.Format, dataSize uint32) []byte {
	blockAlign := format.Channels * audio.BytesPerSample
	byteRate := format.SampleRate * blockAlign

	h := make([]byte, 0, wavHeaderSize)
	h = append(h, "RIFF"...)
	h = binary.LittleEndian.AppendUint32(h, dataSize+wavHeaderSize-8)
	h = append(h, "WAVEfmt "...)
	h = binary.LittleEndian.AppendUint32(h, 16)
	h = binary.LittleEndian.AppendUint16(h, 1)                              // PCM
	h = binary.LittleEndian.AppendUint16(h, uint16(format.Channels))        //nolint:gosec // Mono or stereo
	h = binary.LittleEndian.AppendUint32(h, uint32(format.SampleRate))      //nolint:gosec // Standard rates
	h = binary.LittleEndian.AppendUint32(h, uint32(byteRate))               //nolint:gosec // Standard rates
	h = binary.LittleEndian.AppendUint16(h, uint16(blockAlign))             //nolint:gosec // Small
	h = binary.LittleEndian.AppendUint16(h, uint16(audio.BytesPerSample*8)) //nolint:gosec // 16
	h = append(h, "data"...)
	h = binary.LittleEndian.AppendUint32(h, dataSize)
	return h
}
