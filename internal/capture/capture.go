// Package capture is the screen capture boundary. Captures carry both the
// pixel image and the logical display bounds: on high-density displays the
// two differ by the pixel scale, and the locator needs both to convert
// resolved points back to pointer space.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Shot is one captured display: the raw pixel image plus the display's
// bounds in the logical pointer coordinate space.
type Shot struct {
	Image         image.Image
	LogicalBounds image.Rectangle
}

// Service is the capability contract for screen capture.
type Service interface {
	CaptureDisplay(ctx context.Context, index int) (Shot, error)
}

// Screen captures physical displays. The zero value is ready to use.
type Screen struct{}

// NewScreen returns the default display capturer.
func NewScreen() *Screen { return &Screen{} }

// CaptureDisplay captures the display with the given index. The context is
// honored between the bounds lookup and the capture; the capture call itself
// is a blocking OS primitive.
func (s *Screen) CaptureDisplay(ctx context.Context, index int) (Shot, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Shot{}, fmt.Errorf("capture: no active displays")
	}
	if index < 0 || index >= n {
		return Shot{}, fmt.Errorf("capture: display %d out of range (have %d)", index, n)
	}
	if err := ctx.Err(); err != nil {
		return Shot{}, err
	}

	bounds := screenshot.GetDisplayBounds(index)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return Shot{}, fmt.Errorf("capture display %d: %w", index, err)
	}
	return Shot{Image: img, LogicalBounds: bounds}, nil
}
