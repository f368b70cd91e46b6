package locate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedVision answers the coarse and fine prompts with canned replies.
type scriptedVision struct {
	coarse string
	fine   string
	err    error
	calls  int
}

func (s *scriptedVision) Query(_ context.Context, _ []byte, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if strings.Contains(prompt, "bounding box") {
		return s.coarse, nil
	}
	return s.fine, nil
}

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestLocate_ComposesPhases(t *testing.T) {
	// 2000x1000 physical image over a 1000-wide logical screen: scale 2.0.
	vs := &scriptedVision{
		coarse: `{"found": true, "top": 0.25, "left": 0.25, "bottom": 0.75, "right": 0.75}`,
		fine:   `{"found": true, "x_percent": 0.5, "y_percent": 0.5, "reason": "row header"}`,
	}
	l, err := NewLocator(Config{LogicalScreenWidth: 1000, LogicalScreenHeight: 500}, vs)
	require.NoError(t, err)

	res, err := l.Locate(context.Background(), testImage(2000, 1000), "the name cell")
	require.NoError(t, err)
	require.True(t, res.Found)

	// Crop is (500,250)-(1500,750); the fine midpoint lands at physical
	// (1000,500), which is logical (500,250) at scale 2.
	assert.Equal(t, image.Point{X: 500, Y: 250}, res.Point)
	assert.Equal(t, "row header", res.ConfidenceNote)
	assert.Equal(t, 2, vs.calls)
}

func TestLocate_FineFractionOfCrop(t *testing.T) {
	// The fine fractions are relative to the crop, not the full image.
	vs := &scriptedVision{
		coarse: `{"found": true, "top": 0.0, "left": 0.5, "bottom": 0.5, "right": 1.0}`,
		fine:   `{"found": true, "x_percent": 0.0, "y_percent": 0.0}`,
	}
	l, err := NewLocator(Config{LogicalScreenWidth: 1000}, vs)
	require.NoError(t, err)

	res, err := l.Locate(context.Background(), testImage(1000, 1000), "target")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, image.Point{X: 500, Y: 0}, res.Point)
}

func TestLocate_CoarseNotFound(t *testing.T) {
	vs := &scriptedVision{coarse: `{"found": false, "reason": "table not visible"}`}
	l, err := NewLocator(Config{LogicalScreenWidth: 100}, vs)
	require.NoError(t, err)

	res, err := l.Locate(context.Background(), testImage(100, 100), "target")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, "table not visible", res.ConfidenceNote)
	// Fine phase must not run without a region.
	assert.Equal(t, 1, vs.calls)
}

func TestLocate_MalformedRepliesAreNotFound(t *testing.T) {
	tests := []struct {
		name   string
		coarse string
		fine   string
	}{
		{"coarse prose", "I cannot help with that.", ""},
		{"coarse inverted box", `{"found": true, "top": 0.8, "left": 0.1, "bottom": 0.2, "right": 0.9}`, ""},
		{"coarse out of range", `{"found": true, "top": -0.5, "left": 0, "bottom": 2.0, "right": 1.0}`, ""},
		{"fine prose", `{"found": true, "top": 0.1, "left": 0.1, "bottom": 0.9, "right": 0.9}`, "no json here"},
		{"fine fraction out of range", `{"found": true, "top": 0.1, "left": 0.1, "bottom": 0.9, "right": 0.9}`, `{"found": true, "x_percent": 1.5, "y_percent": 0.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := &scriptedVision{coarse: tt.coarse, fine: tt.fine}
			l, err := NewLocator(Config{LogicalScreenWidth: 100}, vs)
			require.NoError(t, err)

			res, err := l.Locate(context.Background(), testImage(100, 100), "target")
			require.NoError(t, err)
			assert.False(t, res.Found)
			assert.NotEmpty(t, res.ConfidenceNote)
		})
	}
}

func TestLocate_QueryFailureIsNotFound(t *testing.T) {
	vs := &scriptedVision{err: errors.New("upstream 502")}
	l, err := NewLocator(Config{LogicalScreenWidth: 100}, vs)
	require.NoError(t, err)

	res, err := l.Locate(context.Background(), testImage(100, 100), "target")
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestLocate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vs := &scriptedVision{err: ctx.Err()}
	l, err := NewLocator(Config{LogicalScreenWidth: 100}, vs)
	require.NoError(t, err)

	_, err = l.Locate(ctx, testImage(100, 100), "target")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocate_ClampsToLogicalBounds(t *testing.T) {
	vs := &scriptedVision{
		coarse: `{"found": true, "top": 0.0, "left": 0.0, "bottom": 1.0, "right": 1.0}`,
		fine:   `{"found": true, "x_percent": 1.0, "y_percent": 1.0}`,
	}
	l, err := NewLocator(Config{LogicalScreenWidth: 100, LogicalScreenHeight: 100}, vs)
	require.NoError(t, err)

	res, err := l.Locate(context.Background(), testImage(100, 100), "target")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, image.Point{X: 99, Y: 99}, res.Point)
}

func TestNewLocator_Validation(t *testing.T) {
	_, err := NewLocator(Config{LogicalScreenWidth: 100}, nil)
	assert.Error(t, err)
	_, err = NewLocator(Config{}, &scriptedVision{})
	assert.Error(t, err)
}

func TestRegionOfInterest_Validate(t *testing.T) {
	valid := RegionOfInterest{Top: 0.1, Left: 0.1, Bottom: 0.9, Right: 0.9}
	assert.NoError(t, valid.Validate())

	for name, roi := range map[string]RegionOfInterest{
		"inverted vertical":   {Top: 0.9, Left: 0.1, Bottom: 0.1, Right: 0.9},
		"inverted horizontal": {Top: 0.1, Left: 0.9, Bottom: 0.9, Right: 0.1},
		"negative":            {Top: -0.1, Left: 0.1, Bottom: 0.9, Right: 0.9},
		"above one":           {Top: 0.1, Left: 0.1, Bottom: 1.5, Right: 0.9},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, roi.Validate())
		})
	}
}

func TestRegionOfInterest_PixelRect(t *testing.T) {
	roi := RegionOfInterest{Top: 0.25, Left: 0.25, Bottom: 0.75, Right: 0.75}
	rect := roi.PixelRect(image.Rect(0, 0, 400, 200))
	assert.Equal(t, image.Rect(100, 50, 300, 150), rect)
}

func ExampleLocator_Locate() {
	vs := &scriptedVision{
		coarse: `{"found": true, "top": 0.0, "left": 0.0, "bottom": 1.0, "right": 1.0}`,
		fine:   `{"found": true, "x_percent": 0.5, "y_percent": 0.5}`,
	}
	l, _ := NewLocator(Config{LogicalScreenWidth: 200}, vs)
	res, _ := l.Locate(context.Background(), testImage(200, 100), "the save button")
	fmt.Println(res.Found, res.Point)
	// Output: true (100,50)
}
