// Package testutil provides synthetic EMR screenshot builders shared by
// tests across packages.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test screen sizes.
	SmallScreen  = ImageSize{320, 240}
	MediumScreen = ImageSize{640, 480}
	LargeScreen  = ImageSize{1280, 800}
)

// ScreenshotConfig holds configuration for generating synthetic EMR screens.
type ScreenshotConfig struct {
	Lines      []string
	Size       ImageSize
	Background color.Color
	Foreground color.Color
	// Marker, when non-nil, is filled with MarkerColor so locate tests have
	// an unambiguous visual target at a known position.
	Marker      *image.Rectangle
	MarkerColor color.Color
}

// DefaultScreenshotConfig returns a plain white screen with a few demo rows.
func DefaultScreenshotConfig() ScreenshotConfig {
	return ScreenshotConfig{
		Lines:      []string{"Name: John Doe", "Gender: Male", "DOB: 01/15/1970", "MRN: EMR001"},
		Size:       MediumScreen,
		Background: color.White,
		Foreground: color.Black,
	}
}

// GenerateScreenshot renders the configured lines onto a solid background
// using a fixed bitmap font. The output is deterministic, which keeps
// pixel-level assertions stable.
func GenerateScreenshot(cfg ScreenshotConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{cfg.Foreground},
		Face: face,
	}
	y := face.Height + 4
	for _, line := range cfg.Lines {
		drawer.Dot = fixed.P(8, y)
		drawer.DrawString(line)
		y += face.Height + 4
	}

	if cfg.Marker != nil {
		c := cfg.MarkerColor
		if c == nil {
			c = color.RGBA{R: 255, A: 255}
		}
		draw.Draw(img, *cfg.Marker, &image.Uniform{c}, image.Point{}, draw.Src)
	}
	return img
}

// EncodePNG encodes an image for handlers and clients that take raw uploads.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
