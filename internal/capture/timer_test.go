package capture_test

import (
	"testing"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture/mock"
)

func TestElapsedTimer(t *testing.T) {
	clock := mock.NewClock()
	timer := capture.NewElapsedTimer(clock, second)

	if timer.C() != nil {
		t.Fatal("expected nil channel while stopped")
	}

	timer.Start()
	timer.Start()
	if n := clock.Running(second); n != 1 {
		t.Fatalf("expected one ticker after double start, got %d", n)
	}

	go clock.Fire(second)
	<-timer.C()
	timer.Tick()
	timer.Tick()

	timer.Stop()
	if timer.Running() || clock.Running(second) != 0 {
		t.Error("expected timer stopped")
	}
	if timer.Elapsed() != 2 {
		t.Errorf("expected count kept across stop, got %d", timer.Elapsed())
	}

	timer.Reset()
	if timer.Elapsed() != 0 {
		t.Errorf("expected zero after reset, got %d", timer.Elapsed())
	}
}

func TestSampler(t *testing.T) {
	clock := mock.NewClock()
	if _, err := capture.NewSampler(clock, frameDt, 0, audio.DefaultFFTSize); err == nil {
		t.Error("expected error for zero bars")
	}
	if _, err := capture.NewSampler(clock, frameDt, 30, 100); err == nil {
		t.Error("expected error for non power of two fft size")
	}

	s, err := capture.NewSampler(clock, frameDt, 30, audio.DefaultFFTSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertFrame(t, s.Last(), func(v float64) bool { return v == audio.FloorLevel }, "initial frame")

	s.Feed(sinePCM(512, 2000))
	f := s.Sample()
	assertFrame(t, f, func(v float64) bool { return v >= audio.FloorLevel && v <= audio.CeilLevel }, "tone frame")
	if maxOf(f) <= audio.FloorLevel {
		t.Error("expected tone above floor")
	}
	if s.Level() <= audio.MinDB {
		t.Errorf("expected measurable level, got %v", s.Level())
	}

	s.Start()
	s.Stop()
	s.Stop()
	if s.C() != nil {
		t.Error("expected nil channel after stop")
	}

	s.Reset()
	assertFrame(t, s.Last(), func(v float64) bool { return v == audio.FloorLevel }, "reset frame")
	assertFrame(t, s.Sample(), func(v float64) bool { return v == audio.FloorLevel }, "post-reset sample")
}
