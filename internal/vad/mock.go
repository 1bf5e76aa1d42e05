package vad

import "sync"

// MockDetector is a DetectorInterface implementation for tests. Adapted
// verbatim in behavior from the teacher's pkg/vad/mock.go.
type MockDetector struct {
	// InferFunc is called when Infer is invoked. If nil, returns 0.0.
	InferFunc func(samples []float32) (float32, error)

	// InferCalls records every call to Infer for assertions.
	InferCalls [][]float32

	ResetCalled   bool
	DestroyCalled bool

	mu sync.Mutex
}

// NewMockDetector creates a MockDetector that reports no speech.
func NewMockDetector() *MockDetector {
	return &MockDetector{InferCalls: make([][]float32, 0)}
}

// NewMockDetectorWithProb creates a MockDetector that always returns prob.
func NewMockDetectorWithProb(prob float32) *MockDetector {
	return &MockDetector{
		InferFunc: func(samples []float32) (float32, error) { return prob, nil },
		InferCalls: make([][]float32, 0),
	}
}

// NewMockDetectorWithSequence cycles through probs on successive calls.
func NewMockDetectorWithSequence(probs []float32) *MockDetector {
	idx := 0
	return &MockDetector{
		InferFunc: func(samples []float32) (float32, error) {
			if len(probs) == 0 {
				return 0, nil
			}
			p := probs[idx]
			idx = (idx + 1) % len(probs)
			return p, nil
		},
		InferCalls: make([][]float32, 0),
	}
}

func (m *MockDetector) Infer(samples []float32) (float32, error) {
	m.mu.Lock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	m.InferCalls = append(m.InferCalls, cp)
	m.mu.Unlock()

	if m.InferFunc != nil {
		return m.InferFunc(samples)
	}
	return 0.0, nil
}

func (m *MockDetector) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalled = true
	return nil
}

func (m *MockDetector) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DestroyCalled = true
	return nil
}

// CallCount returns the number of Infer calls recorded so far.
func (m *MockDetector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.InferCalls)
}

var _ DetectorInterface = (*MockDetector)(nil)
