package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

type recordingSink struct {
	mu     sync.Mutex
	chunks [][]byte
	errs   []error
}

func (s *recordingSink) Deliver(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, bytes.Clone(chunk))
}

func (s *recordingSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Join(s.chunks, nil)
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name      string
		ffmpeg    string
		container types.Container
		wantErr   bool
	}{
		{"wav without ffmpeg", "", types.ContainerWAV, false},
		{"webm without ffmpeg", "", types.ContainerWebM, true},
		{"webm with ffmpeg", "/usr/bin/ffmpeg", types.ContainerWebM, false},
		{"unknown container", "/usr/bin/ffmpeg", types.Container("flac"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFactory(tt.ffmpeg, tt.container)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && f.Container() != tt.container {
				t.Errorf("expected container %s, got %s", tt.container, f.Container())
			}
		})
	}

	if _, err := NewFactory("", types.ContainerMP3); !errors.Is(err, ErrFFmpegRequired) {
		t.Errorf("expected ErrFFmpegRequired, got %v", err)
	}
}

func TestWAVEncoder(t *testing.T) {
	f, err := NewFactory("", types.ContainerWAV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := &recordingSink{}
	enc, err := f.NewEncoder(audio.DefaultFormat(), sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pcm := bytes.Repeat([]byte{0x01, 0x02}, 480)
	for range 3 {
		if err := enc.Write(pcm); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	tail, err := enc.Flush()
	if err != nil || len(tail) != 0 {
		t.Fatalf("expected empty flush, got %d bytes, %v", len(tail), err)
	}
	if err := enc.Write(pcm); err == nil {
		t.Error("expected write after flush to fail")
	}

	fin, ok := enc.(capture.Finalizer)
	if !ok {
		t.Fatal("expected WAV encoder to implement Finalizer")
	}
	data := fin.Finalize(append(sink.bytes(), tail...))

	if len(data) != wavHeaderSize+3*len(pcm) {
		t.Fatalf("expected %d bytes, got %d", wavHeaderSize+3*len(pcm), len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Error("malformed RIFF header")
	}
	if got := binary.LittleEndian.Uint32(data[4:8]); got != uint32(len(data)-8) {
		t.Errorf("expected RIFF size %d, got %d", len(data)-8, got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(3*len(pcm)) {
		t.Errorf("expected data size %d, got %d", 3*len(pcm), got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != audio.DefaultSampleRate {
		t.Errorf("expected sample rate %d, got %d", audio.DefaultSampleRate, got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Errorf("expected mono, got %d channels", got)
	}
	if enc.ContentType() != "audio/wav" || enc.Extension() != "wav" {
		t.Errorf("unexpected container %s/%s", enc.ContentType(), enc.Extension())
	}
}

func TestWAVFinalizeShortInput(t *testing.T) {
	enc := NewWAVEncoder(audio.DefaultFormat(), &recordingSink{})
	if got := enc.Finalize([]byte{1, 2, 3}); len(got) != 3 {
		t.Errorf("expected short input unchanged, got %d bytes", len(got))
	}
}

func TestFFmpegEncoder(t *testing.T) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	sink := &recordingSink{}
	enc, err := NewFFmpegEncoder(path, types.PresetFor(types.ContainerWAV), audio.DefaultFormat(), sink)
	if err != nil {
		t.Fatalf("failed to start encoder: %v", err)
	}
	defer enc.Close() //nolint:errcheck // Test cleanup

	pcm := make([]byte, audio.DefaultFormat().BytesPerSecond()/10)
	for range 5 {
		if err := enc.Write(pcm); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	done := make(chan struct{})
	var tail []byte
	go func() {
		defer close(done)
		tail, err = enc.Flush()
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("flush did not return")
	}
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	out := append(sink.bytes(), tail...)
	if len(out) < 5*len(pcm) {
		t.Errorf("expected at least %d bytes of output, got %d", 5*len(pcm), len(out))
	}
	if len(sink.errs) != 0 {
		t.Errorf("expected no failures after a clean flush, got %v", sink.errs)
	}
	if enc.ContentType() != "audio/wav" {
		t.Errorf("unexpected content type %s", enc.ContentType())
	}
}
