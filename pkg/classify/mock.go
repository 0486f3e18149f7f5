package classify

import (
	"context"
	"sync"
)

// Mock is a scripted classifier for tests.
type Mock struct {
	mu     sync.Mutex
	result *Result
	err    error
	calls  int
	frames [][]byte
}

// NewMock creates a mock classifier returning the given result or error.
func NewMock(result *Result, err error) *Mock {
	return &Mock{result: result, err: err}
}

// Classify records the frame and returns the scripted result.
func (m *Mock) Classify(ctx context.Context, jpeg []byte) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.frames = append(m.frames, jpeg)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// Calls returns how many times Classify was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastFrame returns the most recently submitted frame, or nil.
func (m *Mock) LastFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}
