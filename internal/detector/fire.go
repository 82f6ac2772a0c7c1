package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// FireDetector masks fire-colored pixels and thresholds their count.
// It keeps no state between frames.
type FireDetector struct {
	config Config
	lower  gocv.Scalar
	upper  gocv.Scalar
}

// NewFireDetector creates a FireDetector with the given configuration.
func NewFireDetector(config Config) *FireDetector {
	return &FireDetector{
		config: config,
		lower:  rangeScalar(config.Range.Lower),
		upper:  rangeScalar(config.Range.Upper),
	}
}

// Config returns the detector configuration.
func (d *FireDetector) Config() Config {
	return d.config
}

// IsFire reports whether a mask pixel count crosses the threshold.
func (d *FireDetector) IsFire(count int) bool {
	return count > d.config.PixelThreshold
}

// Detect runs one detection pass over frame.
//
// Algorithm:
// 1. Resize to the working resolution
// 2. Gaussian blur to keep the mask from fragmenting
// 3. Convert BGR to HSV
// 4. InRange over the fire band gives a binary mask
// 5. Count mask pixels and zero everything outside the mask
// 6. Fire iff count > threshold
func (d *FireDetector) Detect(frame *gocv.Mat) (Result, error) {
	if frame == nil || frame.Empty() {
		return Result{}, ErrEmptyFrame
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(*frame, &resized, image.Point{X: d.config.Width, Y: d.config.Height}, 0, 0, gocv.InterpolationLinear)

	blurred := gocv.NewMat()
	defer blurred.Close()
	if k := d.config.BlurKernelSize; k > 0 {
		gocv.GaussianBlur(resized, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)
	} else {
		resized.CopyTo(&blurred)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(blurred, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, d.lower, d.upper, &mask)

	count := gocv.CountNonZero(mask)

	masked := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), resized.Rows(), resized.Cols(), resized.Type())
	resized.CopyToWithMask(&masked, mask)

	return Result{
		Fire:       d.IsFire(count),
		PixelCount: count,
		Masked:     masked,
	}, nil
}

func rangeScalar(v [3]uint8) gocv.Scalar {
	return gocv.NewScalar(float64(v[0]), float64(v[1]), float64(v[2]), 0)
}
