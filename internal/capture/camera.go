package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultCameraIndex is the capture device opened by the camera command.
const DefaultCameraIndex = 1

// CameraSource reads frames from a live camera device.
type CameraSource struct {
	videoCapture
	deviceID int
}

// NewCameraSource creates a CameraSource for the given device index.
// The device is not touched until Open.
func NewCameraSource(deviceID int) *CameraSource {
	return &CameraSource{
		videoCapture: videoCapture{target: deviceID},
		deviceID:     deviceID,
	}
}

// Open opens the camera device.
func (c *CameraSource) Open() error {
	if err := c.open(); err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}
	return nil
}

// Close releases the camera device.
func (c *CameraSource) Close() error { return c.close() }

// Read reads a single frame from the camera.
func (c *CameraSource) Read() (*gocv.Mat, error) { return c.read() }

// IsOpen returns true if the camera is currently open.
func (c *CameraSource) IsOpen() bool { return c.isOpen() }

// Name returns a label for logs.
func (c *CameraSource) Name() string { return fmt.Sprintf("camera:%d", c.deviceID) }

// DeviceID returns the camera device index.
func (c *CameraSource) DeviceID() int { return c.deviceID }
