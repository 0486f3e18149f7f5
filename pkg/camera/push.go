package camera

import (
	"sync"
	"time"
)

// DefaultMaxAge is how old a pushed frame may be before the source
// reports it as unavailable.
const DefaultMaxAge = 2 * time.Second

// PushSource is a Source fed by an external producer, typically the
// ingest hub receiving frames from a remote camera agent. It keeps only
// the latest frame; stale frames age out so a dead agent surfaces as
// ErrNoFrame instead of a frozen image.
type PushSource struct {
	mu       sync.RWMutex
	frame    []byte
	received time.Time
	maxAge   time.Duration
	closed   bool

	// OnClose is invoked once when the source is closed, used to
	// detach the producer.
	OnClose func()
}

// NewPushSource creates a push source with the default staleness bound.
func NewPushSource() *PushSource {
	return &PushSource{maxAge: DefaultMaxAge}
}

// Push stores a new frame. Frames pushed after Close are dropped.
func (s *PushSource) Push(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(jpeg) == 0 {
		return
	}
	frame := make([]byte, len(jpeg))
	copy(frame, jpeg)
	s.frame = frame
	s.received = time.Now()
}

// CaptureFrame returns the latest pushed frame.
func (s *PushSource) CaptureFrame() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.frame == nil || time.Since(s.received) > s.maxAge {
		return nil, ErrNoFrame
	}

	frame := make([]byte, len(s.frame))
	copy(frame, s.frame)
	return frame, nil
}

// Close detaches the producer and drops the buffered frame.
func (s *PushSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.frame = nil
	onClose := s.OnClose
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}
