// Package capture provides frame sources backed by GoCV (OpenCV) video capture.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("source is not open")
	// ErrNoFrame is returned when a read yields no frame. File sources treat it
	// as a transient gap, camera sources as end of stream.
	ErrNoFrame = errors.New("no frame available")
)

// Source produces frames.
type Source interface {
	Open() error
	Close() error
	// Read returns the next frame. The caller is responsible for closing it.
	Read() (*gocv.Mat, error)
	IsOpen() bool
	// Name identifies the source in logs.
	Name() string
}

// videoCapture is the gocv handle shared by camera and file sources.
// target is a device index (int) or a file path (string).
type videoCapture struct {
	target  interface{}
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

func (v *videoCapture) open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(v.target)
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open %v: capture not opened", v.target)
	}

	v.capture = capture
	v.running = true
	return nil
}

func (v *videoCapture) close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	err := v.capture.Close()
	v.capture = nil
	v.running = false

	return err
}

func (v *videoCapture) read() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}

	return &mat, nil
}

func (v *videoCapture) isOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.running
}
