package session

import (
	"context"
	"sync"

	"github.com/splitg/go-splitg/pkg/camera"
	"github.com/splitg/go-splitg/pkg/classify"
	"github.com/splitg/go-splitg/pkg/detect"
)

// Manager tracks the single active session. The camera is the one shared
// resource; starting a new session stops whichever session held it.
type Manager struct {
	cfg Config
	det detect.Detector
	cls classify.Classifier

	mu      sync.Mutex
	current *Session

	// OnUpdate is passed through to every session started here.
	OnUpdate func(Snapshot)
}

// NewManager creates a manager sharing one detector and classifier
// across sessions.
func NewManager(det detect.Detector, cls classify.Classifier, cfg Config) *Manager {
	return &Manager{cfg: cfg, det: det, cls: cls}
}

// Start stops any active session and starts a new one over src.
func (m *Manager) Start(ctx context.Context, src camera.Source) (*Session, error) {
	m.mu.Lock()
	prev := m.current
	m.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	s := New(src, m.det, m.cls, m.cfg)
	s.OnUpdate = m.OnUpdate

	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Stop stops the active session, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}
