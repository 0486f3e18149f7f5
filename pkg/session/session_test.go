package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/splitg/go-splitg/pkg/classify"
	"github.com/splitg/go-splitg/pkg/detect"
)

// fakeSource is an in-memory camera source for tests.
type fakeSource struct {
	mu     sync.Mutex
	frame  []byte
	err    error
	closed bool
}

func (f *fakeSource) CaptureFrame() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.frame, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testConfig() Config {
	return Config{
		PollInterval:  time.Millisecond,
		GateThreshold: 6,
		HoldThreshold: 3,
		Logger:        slog.Default(),
	}
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Snapshot().State == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.Snapshot().State, want)
}

func TestGate_StreakCountsConsecutiveDetections(t *testing.T) {
	g := gate{gateThreshold: 6, holdThreshold: 3}
	both := []detect.Detection{
		{Class: detect.ClassGlass, Confidence: 0.9},
		{Class: detect.ClassG, Confidence: 0.8},
	}

	for n := 1; n <= 5; n++ {
		feedback, ready := g.advance(both)
		if g.streak != n {
			t.Fatalf("after tick %d streak = %d, want %d", n, g.streak, n)
		}
		if ready {
			t.Fatalf("gate opened early at streak %d", n)
		}
		want := FeedbackCentered
		if n >= 3 {
			want = FeedbackHoldStill
		}
		if feedback != want {
			t.Errorf("tick %d feedback = %q, want %q", n, feedback, want)
		}
	}

	feedback, ready := g.advance(both)
	if !ready {
		t.Error("gate should open at streak 6")
	}
	if feedback != FeedbackScoring {
		t.Errorf("feedback = %q, want scoring message", feedback)
	}
}

func TestGate_ResetsWhenClassMissing(t *testing.T) {
	tests := []struct {
		name         string
		dets         []detect.Detection
		wantFeedback string
	}{
		{
			name:         "nothing detected",
			dets:         nil,
			wantFeedback: FeedbackNoGlass,
		},
		{
			name:         "glass only, G missing",
			dets:         []detect.Detection{{Class: detect.ClassGlass, Confidence: 0.9}},
			wantFeedback: FeedbackNoG,
		},
		{
			name:         "G only, glass takes priority",
			dets:         []detect.Detection{{Class: detect.ClassG, Confidence: 0.9}},
			wantFeedback: FeedbackNoGlass,
		},
	}

	both := []detect.Detection{
		{Class: detect.ClassGlass, Confidence: 0.9},
		{Class: detect.ClassG, Confidence: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gate{gateThreshold: 6, holdThreshold: 3}
			g.advance(both)
			g.advance(both)

			feedback, ready := g.advance(tt.dets)
			if g.streak != 0 {
				t.Errorf("streak = %d, want 0", g.streak)
			}
			if ready {
				t.Error("gate must not open on a reset tick")
			}
			if feedback != tt.wantFeedback {
				t.Errorf("feedback = %q, want %q", feedback, tt.wantFeedback)
			}
		})
	}
}

func TestSession_GatedSubmission(t *testing.T) {
	src := &fakeSource{frame: []byte("frame")}
	det := detect.NewMock(detect.WithClasses(detect.ClassGlass, detect.ClassG))
	cls := classify.NewMock(&classify.Result{Outcome: classify.OutcomeSplit}, nil)

	s := New(src, det, cls, testConfig())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForState(t, s, StateResult)
	<-s.Done()

	if got := cls.Calls(); got != 1 {
		t.Errorf("Classify called %d times, want exactly 1", got)
	}
	if string(cls.LastFrame()) != "frame" {
		t.Errorf("submitted frame = %q", cls.LastFrame())
	}
	if !src.isClosed() {
		t.Error("camera must be released when the gate opens")
	}
	if snap := s.Snapshot(); snap.Outcome != classify.OutcomeSplit {
		t.Errorf("outcome = %q, want split", snap.Outcome)
	}
}

func TestSession_DetectorErrorsAreTolerated(t *testing.T) {
	src := &fakeSource{frame: []byte("frame")}
	det := detect.NewMock(
		detect.MockResult{Err: errors.New("transient")},
		detect.MockResult{Err: errors.New("transient")},
		detect.WithClasses(detect.ClassGlass, detect.ClassG),
	)
	cls := classify.NewMock(&classify.Result{Outcome: classify.OutcomeNotSplit}, nil)

	s := New(src, det, cls, testConfig())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForState(t, s, StateResult)
	if cls.Calls() != 1 {
		t.Errorf("Classify called %d times, want 1", cls.Calls())
	}
}

func TestSession_ClassificationFailure(t *testing.T) {
	src := &fakeSource{frame: []byte("frame")}
	det := detect.NewMock(detect.WithClasses(detect.ClassGlass, detect.ClassG))
	cls := classify.NewMock(nil, &classify.APIError{StatusCode: 502})

	s := New(src, det, cls, testConfig())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForState(t, s, StateError)

	snap := s.Snapshot()
	if snap.Outcome != "" {
		t.Errorf("outcome = %q, want none on failure", snap.Outcome)
	}
	if snap.Error == "" {
		t.Error("snapshot should carry the failure")
	}
	if !src.isClosed() {
		t.Error("camera must be released on classification failure")
	}
}

func TestSession_StopReleasesCamera(t *testing.T) {
	src := &fakeSource{frame: []byte("frame")}
	// Never both classes, so the gate never opens
	det := detect.NewMock(detect.WithClasses(detect.ClassGlass))
	cls := classify.NewMock(&classify.Result{Outcome: classify.OutcomeSplit}, nil)

	s := New(src, det, cls, testConfig())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	s.Stop()

	if !src.isClosed() {
		t.Error("Stop must release the camera")
	}
	if snap := s.Snapshot(); snap.State != StateStopped {
		t.Errorf("state = %s, want stopped", snap.State)
	}
	if cls.Calls() != 0 {
		t.Errorf("Classify called %d times, want 0", cls.Calls())
	}
}

func TestSession_CaptureNow(t *testing.T) {
	src := &fakeSource{frame: []byte("manual-frame")}
	// Gate never opens on its own
	det := detect.NewMock(detect.WithClasses(detect.ClassGlass))
	cls := classify.NewMock(&classify.Result{Outcome: classify.OutcomeNotSplit}, nil)

	s := New(src, det, cls, testConfig())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.CaptureNow(context.Background()); err != nil {
		t.Fatalf("CaptureNow: %v", err)
	}

	if cls.Calls() != 1 {
		t.Errorf("Classify called %d times, want 1", cls.Calls())
	}
	if string(cls.LastFrame()) != "manual-frame" {
		t.Errorf("submitted frame = %q", cls.LastFrame())
	}
	if !src.isClosed() {
		t.Error("camera must be released after manual capture")
	}

	// A second manual capture must not submit again
	if err := s.CaptureNow(context.Background()); err == nil {
		t.Error("CaptureNow after submission should fail")
	}
	if cls.Calls() != 1 {
		t.Errorf("Classify called %d times after retry, want still 1", cls.Calls())
	}
}

func TestSession_SnapshotCarriesGlassCenter(t *testing.T) {
	src := &fakeSource{frame: []byte("frame")}
	// Glass only, so the loop keeps polling; mock boxes sit at
	// X 0.25, Y 0.25, W 0.5, H 0.5, center (0.5, 0.5)
	det := detect.NewMock(detect.WithClasses(detect.ClassGlass))
	cls := classify.NewMock(nil, nil)

	s := New(src, det, cls, testConfig())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	var snap Snapshot
	for time.Now().Before(deadline) {
		snap = s.Snapshot()
		if snap.GlassX != 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if snap.GlassX != 0.5 || snap.GlassY != 0.5 {
		t.Errorf("glass center = (%v, %v), want (0.5, 0.5)", snap.GlassX, snap.GlassY)
	}
}

func TestSession_StartRequiresIdle(t *testing.T) {
	src := &fakeSource{frame: []byte("frame")}
	det := detect.NewMock(detect.WithClasses(detect.ClassGlass))
	cls := classify.NewMock(nil, nil)

	s := New(src, det, cls, testConfig())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestManager_SingleActiveSession(t *testing.T) {
	det := detect.NewMock(detect.WithClasses(detect.ClassGlass))
	cls := classify.NewMock(nil, nil)
	m := NewManager(det, cls, testConfig())

	src1 := &fakeSource{frame: []byte("one")}
	s1, err := m.Start(context.Background(), src1)
	if err != nil {
		t.Fatalf("Start 1: %v", err)
	}

	src2 := &fakeSource{frame: []byte("two")}
	s2, err := m.Start(context.Background(), src2)
	if err != nil {
		t.Fatalf("Start 2: %v", err)
	}
	defer s2.Stop()

	if !src1.isClosed() {
		t.Error("starting a new session must release the previous camera")
	}
	if s1.Snapshot().State != StateStopped {
		t.Errorf("first session state = %s, want stopped", s1.Snapshot().State)
	}
	if m.Current() != s2 {
		t.Error("Current should return the new session")
	}
}
