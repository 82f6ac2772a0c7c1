package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded frames for testing.
// A nil entry in the sequence simulates a read that yields no frame.
type MockSource struct {
	name    string
	frames  []*gocv.Mat
	index   int
	loop    bool
	openErr error
	opens   int
	reads   int
	mu      sync.Mutex
	running bool
}

// NewMockSource creates a MockSource over frames.
func NewMockSource(name string, frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{
		name:   name,
		frames: frames,
		loop:   loop,
	}
}

// SetOpenError makes Open fail with err.
func (s *MockSource) SetOpenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.openErr != nil {
		return s.openErr
	}
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) Read() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	s.reads++

	if len(s.frames) == 0 {
		return nil, ErrNoFrame
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, ErrNoFrame
		}
		s.index = 0
	}

	f := s.frames[s.index]
	s.index++
	if f == nil {
		return nil, ErrNoFrame
	}

	// Clone the frame so the original isn't modified
	frame := f.Clone()
	return &frame, nil
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *MockSource) Name() string { return s.name }

// Opens returns how many times Open was called.
func (s *MockSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Reads returns how many reads happened while open.
func (s *MockSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

