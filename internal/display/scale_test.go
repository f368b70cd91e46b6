package display

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		imageWidth   int
		logicalWidth int
		want         float64
	}{
		{"standard display", 1920, 1920, 1.0},
		{"retina 2x", 2880, 1440, 2.0},
		{"fractional scaling", 2400, 1600, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, err := Resolve(tt.imageWidth, tt.logicalWidth)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, scale, 1e-9)
		})
	}
}

func TestResolve_InvalidInput(t *testing.T) {
	for _, tt := range []struct {
		name                      string
		imageWidth, logicalWidth int
	}{
		{"zero image width", 0, 1440},
		{"zero logical width", 2880, 0},
		{"negative image width", -1, 1440},
		{"negative logical width", 2880, -10},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.imageWidth, tt.logicalWidth)
			require.ErrorIs(t, err, ErrInvalidScaleInput)
		})
	}
}

func TestToLogical_RoundTrip(t *testing.T) {
	// With scale 1.0 the conversion is the identity in both directions.
	p := image.Point{X: 123, Y: 456}
	assert.Equal(t, p, ToLogical(p, 1.0))
	assert.Equal(t, p, ToPhysical(p, 1.0))
}

func TestToLogical_Retina(t *testing.T) {
	logical := ToLogical(image.Point{X: 2880, Y: 900}, 2.0)
	assert.Equal(t, image.Point{X: 1440, Y: 450}, logical)
}

func TestToLogical_Rounds(t *testing.T) {
	// 101 / 2.0 = 50.5 rounds away from zero.
	logical := ToLogical(image.Point{X: 101, Y: 100}, 2.0)
	assert.Equal(t, image.Point{X: 51, Y: 50}, logical)
}
