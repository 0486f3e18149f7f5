package camera

import (
	"errors"
	"testing"
	"time"
)

func TestPushSource_CaptureFrame(t *testing.T) {
	s := NewPushSource()

	if _, err := s.CaptureFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("empty source err = %v, want ErrNoFrame", err)
	}

	s.Push([]byte("frame-1"))
	frame, err := s.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if string(frame) != "frame-1" {
		t.Errorf("frame = %q, want frame-1", frame)
	}

	// Latest frame wins
	s.Push([]byte("frame-2"))
	frame, _ = s.CaptureFrame()
	if string(frame) != "frame-2" {
		t.Errorf("frame = %q, want frame-2", frame)
	}
}

func TestPushSource_StaleFrame(t *testing.T) {
	s := NewPushSource()
	s.maxAge = 10 * time.Millisecond

	s.Push([]byte("frame"))
	time.Sleep(20 * time.Millisecond)

	if _, err := s.CaptureFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("stale frame err = %v, want ErrNoFrame", err)
	}
}

func TestPushSource_Close(t *testing.T) {
	s := NewPushSource()

	detached := 0
	s.OnClose = func() { detached++ }

	s.Push([]byte("frame"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.CaptureFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("closed source err = %v, want ErrClosed", err)
	}

	// Pushes after close are dropped, double close is safe
	s.Push([]byte("late"))
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if detached != 1 {
		t.Errorf("OnClose ran %d times, want 1", detached)
	}
}

func TestPushSource_CopiesFrames(t *testing.T) {
	s := NewPushSource()

	buf := []byte("original")
	s.Push(buf)
	buf[0] = 'X'

	frame, err := s.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if string(frame) != "original" {
		t.Errorf("frame = %q, caller mutation leaked in", frame)
	}

	frame[0] = 'Y'
	again, _ := s.CaptureFrame()
	if string(again) != "original" {
		t.Errorf("frame = %q, returned slice aliases the buffer", again)
	}
}
