package detect

import "sync"

// Mock is a scripted detector for tests. Each call to Detect pops the
// next scripted result; once the script is exhausted the last entry
// repeats.
type Mock struct {
	mu     sync.Mutex
	script []MockResult
	pos    int
	calls  int
	closed bool
}

// MockResult is one scripted Detect outcome.
type MockResult struct {
	Detections []Detection
	Err        error
}

// NewMock creates a mock detector with the given script.
func NewMock(script ...MockResult) *Mock {
	return &Mock{script: script}
}

// Detect returns the next scripted result.
func (m *Mock) Detect(jpeg []byte) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.script) == 0 {
		return nil, nil
	}
	r := m.script[m.pos]
	if m.pos < len(m.script)-1 {
		m.pos++
	}
	return r.Detections, r.Err
}

// Close marks the detector closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Detect was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WithClasses is a convenience for scripting a tick that sees the given
// class labels at fixed confidence.
func WithClasses(classes ...string) MockResult {
	var dets []Detection
	for _, c := range classes {
		dets = append(dets, Detection{Class: c, Confidence: 0.9, X: 0.25, Y: 0.25, W: 0.5, H: 0.5})
	}
	return MockResult{Detections: dets}
}
