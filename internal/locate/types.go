package locate

import (
	"fmt"
	"image"
	"math"
)

// RegionOfInterest is the coarse-phase result: a bounding box expressed as
// fractions of the full captured image.
type RegionOfInterest struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// Validate enforces the box invariant: all four edges in [0,1], top strictly
// above bottom and left strictly before right.
func (r RegionOfInterest) Validate() error {
	for _, v := range []float64{r.Top, r.Left, r.Bottom, r.Right} {
		if v < 0.0 || v > 1.0 || math.IsNaN(v) {
			return fmt.Errorf("region edge %v outside [0,1]", v)
		}
	}
	if r.Top >= r.Bottom {
		return fmt.Errorf("region top %v not above bottom %v", r.Top, r.Bottom)
	}
	if r.Left >= r.Right {
		return fmt.Errorf("region left %v not before right %v", r.Left, r.Right)
	}
	return nil
}

// PixelRect converts the fractional box to physical pixel coordinates within
// bounds, clamped to the image. A box that collapses to zero area after
// clamping is not usable for cropping.
func (r RegionOfInterest) PixelRect(bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	rect := image.Rect(
		bounds.Min.X+int(math.Round(r.Left*w)),
		bounds.Min.Y+int(math.Round(r.Top*h)),
		bounds.Min.X+int(math.Round(r.Right*w)),
		bounds.Min.Y+int(math.Round(r.Bottom*h)),
	)
	return rect.Intersect(bounds)
}

// Result is the outcome of a localization attempt. Point is in logical
// pointer space and only meaningful when Found is true.
type Result struct {
	Found          bool        `json:"found"`
	Point          image.Point `json:"point"`
	ConfidenceNote string      `json:"confidence_note,omitempty"`
}

// notFound builds a negative result with a reason for the caller's logs.
func notFound(note string) Result {
	return Result{Found: false, ConfidenceNote: note}
}
