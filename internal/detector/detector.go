// Package detector classifies video frames as containing fire by HSV color range.
package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// Working resolutions. Every frame is resized to one of these before masking.
const (
	WatchWidth   = 960
	WatchHeight  = 540
	CameraWidth  = 720
	CameraHeight = 480
)

// Mask tuning. Hue uses the OpenCV 0..179 scale.
const (
	// BlurKernelSize is the Gaussian kernel applied before masking (sigma 0).
	BlurKernelSize = 21

	HueMin        = 18
	HueMax        = 35
	SaturationMin = 50
	SaturationMax = 255
	ValueMin      = 50
	ValueMax      = 255

	// PixelThreshold is the mask pixel count a frame must exceed to be fire.
	PixelThreshold = 15000
)

// ErrEmptyFrame is returned when Detect is given a nil or empty frame.
var ErrEmptyFrame = errors.New("frame is empty")

// Detector defines the interface for fire detection implementations.
type Detector interface {
	// Detect classifies one frame. The caller closes Result.Masked.
	Detect(frame *gocv.Mat) (Result, error)
}

// Result is the per-frame outcome of a detection pass.
type Result struct {
	// Fire is true when PixelCount exceeds the configured threshold.
	Fire bool
	// PixelCount is the number of fire-colored pixels in the mask.
	PixelCount int
	// Masked is the resized frame with every non-fire pixel zeroed.
	Masked gocv.Mat
}

// Close releases the masked frame.
func (r *Result) Close() error {
	return r.Masked.Close()
}

// HSVRange is an inclusive lower/upper bound for each HSV channel.
type HSVRange struct {
	Lower [3]uint8
	Upper [3]uint8
}

// Config holds the tunable surface of the detector.
type Config struct {
	Width          int
	Height         int
	BlurKernelSize int
	Range          HSVRange
	PixelThreshold int
}

// FireRange returns the orange/yellow flame band.
func FireRange() HSVRange {
	return HSVRange{
		Lower: [3]uint8{HueMin, SaturationMin, ValueMin},
		Upper: [3]uint8{HueMax, SaturationMax, ValueMax},
	}
}

// WatchConfig returns the detector settings used for recorded video files.
func WatchConfig() Config {
	return Config{
		Width:          WatchWidth,
		Height:         WatchHeight,
		BlurKernelSize: BlurKernelSize,
		Range:          FireRange(),
		PixelThreshold: PixelThreshold,
	}
}

// CameraConfig returns the detector settings used for a live camera.
func CameraConfig() Config {
	cfg := WatchConfig()
	cfg.Width = CameraWidth
	cfg.Height = CameraHeight
	return cfg
}
