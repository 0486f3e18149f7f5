package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/splitg/go-splitg/pkg/camera"
	"github.com/splitg/go-splitg/pkg/classify"
	"github.com/splitg/go-splitg/pkg/detect"
)

// Config holds session tunables. Thresholds and the poll interval are
// constants of the experience, not derived values.
type Config struct {
	// PollInterval is the gate loop cadence.
	PollInterval time.Duration
	// GateThreshold is the consecutive-detection streak that triggers
	// submission.
	GateThreshold int
	// HoldThreshold is the streak at which feedback switches to the
	// hold-still message.
	HoldThreshold int
	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the reference behavior: poll every 500ms, gate
// at 6 consecutive detections, hold-still from 3.
func DefaultConfig() Config {
	return Config{
		PollInterval:  500 * time.Millisecond,
		GateThreshold: 6,
		HoldThreshold: 3,
		Logger:        slog.Default(),
	}
}

// Snapshot is a point-in-time view of a session for display.
type Snapshot struct {
	ID       string           `json:"id"`
	State    State            `json:"state"`
	Streak   int              `json:"streak"`
	Feedback string           `json:"feedback"`
	Outcome  classify.Outcome `json:"outcome,omitempty"`
	Error    string           `json:"error,omitempty"`

	// Center of the best glass detection from the latest tick,
	// normalized 0-1; zero when no glass is in view. The page uses it
	// to draw the alignment guide.
	GlassX float64 `json:"glass_x,omitempty"`
	GlassY float64 `json:"glass_y,omitempty"`
}

// ErrNotLive is returned when an operation needs a running gate loop.
var ErrNotLive = errors.New("session: not live")

// Session runs one capture session: it owns the camera source, polls the
// detector, and submits at most one frame to the classifier.
type Session struct {
	id  string
	cfg Config

	src camera.Source
	det detect.Detector
	cls classify.Classifier

	mu        sync.Mutex
	state     State
	gate      gate
	feedback  string
	glassX    float64
	glassY    float64
	result    *classify.Result
	lastErr   error
	submitted bool
	released  bool

	cancel context.CancelFunc
	done   chan struct{}

	// OnUpdate, when set before Start, receives a snapshot after every
	// state or feedback change. Called without the session lock held.
	OnUpdate func(Snapshot)

	logger *slog.Logger
}

// New creates a session over the given capabilities. The session takes
// ownership of the camera source and closes it on every exit path.
func New(src camera.Source, det detect.Detector, cls classify.Classifier, cfg Config) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.GateThreshold <= 0 {
		cfg.GateThreshold = 6
	}
	if cfg.HoldThreshold <= 0 {
		cfg.HoldThreshold = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := uuid.NewString()
	return &Session{
		id:    id,
		cfg:   cfg,
		src:   src,
		det:   det,
		cls:   cls,
		state: StateIdle,
		gate: gate{
			gateThreshold: cfg.GateThreshold,
			holdThreshold: cfg.HoldThreshold,
		},
		feedback: FeedbackCentered,
		done:     make(chan struct{}),
		logger:   cfg.Logger.With("component", "session", "session_id", id),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Start transitions Idle → Live and launches the gate loop. ctx bounds
// the whole session; cancelling it stops the loop and releases the
// camera.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("session: cannot start from state %s", s.state)
	}
	s.state = StateCameraStarting

	// Probe the source once so a dead camera fails the start instead of
	// producing a silent loop of skipped ticks.
	s.mu.Unlock()
	if _, err := s.src.CaptureFrame(); err != nil && !errors.Is(err, camera.ErrNoFrame) {
		s.fail(fmt.Errorf("session: camera unavailable: %w", err))
		return s.lastErr
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.state = StateLive
	s.mu.Unlock()
	s.notify()

	go s.run(runCtx)
	return nil
}

// run is the gate loop. One goroutine per session; the ticker is the
// only recurring suspension point.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopInternal()
			return
		case <-ticker.C:
			if terminal := s.tick(ctx); terminal {
				return
			}
		}
	}
}

// tick runs one poll: capture, detect, advance the gate, and on gate
// open freeze the frame and submit. Returns true when the loop is done.
func (s *Session) tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StateLive {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	frame, err := s.src.CaptureFrame()
	if err != nil {
		if errors.Is(err, camera.ErrClosed) {
			s.fail(fmt.Errorf("session: camera stopped: %w", err))
			return true
		}
		// No frame yet; wait for the next tick
		s.logger.Debug("no frame this tick", "error", err)
		return false
	}

	dets, err := s.det.Detect(frame)
	if err != nil {
		// Transient detector errors are tolerated, not fatal
		s.logger.Warn("detector error, skipping tick", "error", err)
		return false
	}

	var cx, cy float64
	if best := detect.Best(dets, detect.ClassGlass); best != nil {
		cx, cy = best.Center()
	}

	s.mu.Lock()
	feedback, ready := s.gate.advance(dets)
	s.feedback = feedback
	s.glassX, s.glassY = cx, cy
	streak := s.gate.streak
	s.mu.Unlock()
	s.notify()

	s.logger.Debug("gate tick", "streak", streak, "ready", ready)

	if !ready {
		return false
	}

	// Gate open: freeze this frame and hand off. Terminal for the loop.
	s.submit(ctx, frame)
	return true
}

// submit is the single submission entry point, shared by the automatic
// gate and the manual capture. At most one frame is ever submitted.
func (s *Session) submit(ctx context.Context, frame []byte) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	s.submitted = true
	s.state = StateSubmitting
	s.feedback = FeedbackScoring
	s.mu.Unlock()
	s.notify()

	// The capture device is released before scoring starts
	s.releaseCamera()

	result, err := s.cls.Classify(ctx, frame)
	if err != nil {
		s.fail(fmt.Errorf("session: classification failed: %w", err))
		return
	}

	s.mu.Lock()
	s.state = StateResult
	s.result = result
	s.mu.Unlock()
	s.notify()

	s.logger.Info("session scored", "outcome", result.Outcome)
}

// CaptureNow submits the current frame immediately, bypassing the gate
// streak. It routes through the same one-shot submission path as the
// automatic gate.
func (s *Session) CaptureNow(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLive {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotLive, state)
	}
	cancel := s.cancel
	s.mu.Unlock()

	frame, err := s.src.CaptureFrame()
	if err != nil {
		return fmt.Errorf("session: manual capture: %w", err)
	}

	s.submit(ctx, frame)
	if cancel != nil {
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Stop cancels the gate loop and releases the camera. Safe to call in
// any state.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-s.done
	}
	s.stopInternal()
}

// stopInternal marks terminal-by-stop states and releases the camera.
func (s *Session) stopInternal() {
	s.mu.Lock()
	if s.state == StateLive || s.state == StateCameraStarting || s.state == StateIdle {
		s.state = StateStopped
	}
	s.mu.Unlock()
	s.releaseCamera()
	s.notify()
}

// fail moves the session to Error and releases the camera.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastErr = err
	s.mu.Unlock()
	s.releaseCamera()
	s.notify()
	s.logger.Error("session failed", "error", err)
}

// releaseCamera closes the source exactly once.
func (s *Session) releaseCamera() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if err := s.src.Close(); err != nil {
		s.logger.Warn("camera release failed", "error", err)
	}
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:       s.id,
		State:    s.state,
		Streak:   s.gate.streak,
		Feedback: s.feedback,
		GlassX:   s.glassX,
		GlassY:   s.glassY,
	}
	if s.result != nil {
		snap.Outcome = s.result.Outcome
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// Result returns the scored result, or nil before scoring finished.
func (s *Session) Result() *classify.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Done returns a channel closed when the gate loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// notify pushes a snapshot to the OnUpdate hook.
func (s *Session) notify() {
	if s.OnUpdate != nil {
		s.OnUpdate(s.Snapshot())
	}
}
