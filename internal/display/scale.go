// Package display maps between the physical pixel grid of a captured image
// and the logical pointer coordinate space of the display it was taken from.
// On high-density displays the capture is larger than the pointer space by an
// integer-ish factor; clicking with physical coordinates lands in the wrong
// place, so every resolved point must be divided back into logical space.
package display

import (
	"errors"
	"image"
	"math"
)

// ErrInvalidScaleInput reports a non-positive screen or image width. This is
// a configuration or programming error, not a runtime condition to retry.
var ErrInvalidScaleInput = errors.New("display: widths must be positive")

// Resolve computes the ratio between an image's pixel width and the logical
// width of the screen it captured. The result is >= 1.0 on high-density
// displays; callers divide physical coordinates by it to obtain pointer
// coordinates and multiply when converting a pointer-space region to crop
// bounds.
func Resolve(imagePixelWidth, logicalScreenWidth int) (float64, error) {
	if logicalScreenWidth <= 0 || imagePixelWidth <= 0 {
		return 0, ErrInvalidScaleInput
	}
	return float64(imagePixelWidth) / float64(logicalScreenWidth), nil
}

// ToLogical converts a physical pixel point to logical pointer space.
func ToLogical(physical image.Point, scale float64) image.Point {
	return image.Point{
		X: int(math.Round(float64(physical.X) / scale)),
		Y: int(math.Round(float64(physical.Y) / scale)),
	}
}

// ToPhysical converts a logical pointer point to the image pixel grid.
func ToPhysical(logical image.Point, scale float64) image.Point {
	return image.Point{
		X: int(math.Round(float64(logical.X) * scale)),
		Y: int(math.Round(float64(logical.Y) * scale)),
	}
}
