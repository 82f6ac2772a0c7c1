// Package testdata builds synthetic frames for detector and pipeline tests.
package testdata

import (
	"image"

	"gocv.io/x/gocv"
)

// Colors in BGR order.
var (
	// FireOrange converts to HSV (25, 200, 200) on the OpenCV scale.
	FireOrange = gocv.NewScalar(43, 174, 200, 0)
	// SkyBlue sits far outside the fire hue band.
	SkyBlue = gocv.NewScalar(200, 120, 40, 0)
	Black   = gocv.NewScalar(0, 0, 0, 0)
)

// SolidFrame returns a rows x cols BGR frame filled with color.
// The caller is responsible for closing the returned Mat.
func SolidFrame(rows, cols int, color gocv.Scalar) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(color, rows, cols, gocv.MatTypeCV8UC3)
}

// FrameWithFirePixels returns a black rows x cols frame whose first n pixels,
// in row-major order, are FireOrange.
func FrameWithFirePixels(rows, cols, n int) gocv.Mat {
	frame := SolidFrame(rows, cols, Black)

	full := n / cols
	if full > rows {
		full = rows
	}
	if full > 0 {
		fill(&frame, image.Rect(0, 0, cols, full))
	}

	if rest := n - full*cols; rest > 0 && full < rows {
		fill(&frame, image.Rect(0, full, rest, full+1))
	}

	return frame
}

func fill(frame *gocv.Mat, r image.Rectangle) {
	region := frame.Region(r)
	defer region.Close()
	region.SetTo(FireOrange)
}
