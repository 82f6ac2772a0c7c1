package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	counts []int
	index  int
	calls  int
	err    error
	config Config
	mu     sync.Mutex
}

// NewMockDetector creates a MockDetector that reports the given pixel counts
// in order, repeating the last one once exhausted. Counts are classified with
// the default PixelThreshold.
func NewMockDetector(counts ...int) *MockDetector {
	return &MockDetector{
		counts: counts,
		config: WatchConfig(),
	}
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next pre-configured count. The masked frame is a copy of
// the input so callers can close it like a real result.
func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}

	count := 0
	if len(m.counts) > 0 {
		i := m.index
		if i >= len(m.counts) {
			i = len(m.counts) - 1
		} else {
			m.index++
		}
		count = m.counts[i]
	}

	masked := gocv.NewMat()
	if frame != nil && !frame.Empty() {
		frame.CopyTo(&masked)
	}

	return Result{
		Fire:       count > m.config.PixelThreshold,
		PixelCount: count,
		Masked:     masked,
	}, nil
}
