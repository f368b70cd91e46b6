// Package locate resolves one clickable point on a captured screen using a
// two-phase vision protocol: first the coarse region holding the candidate
// set, then the precise point within a magnified crop of that region. A
// single whole-image query yields coarse, imprecise coordinates on dense
// tables; the second query operates on a context-reduced image and recovers
// the precision the first one loses.
package locate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/chartflow/chartflow/internal/decode"
	"github.com/chartflow/chartflow/internal/display"
)

// VisionService is the slice of the vision boundary the locator needs.
// Responses are treated as unreliable: malformed or partial content is a
// normal outcome, never a defect.
type VisionService interface {
	Query(ctx context.Context, imagePNG []byte, prompt string) (string, error)
}

// Config holds locator settings.
type Config struct {
	// LogicalScreenWidth is the width of the pointer coordinate space the
	// captured image belongs to. Required for scale correction.
	LogicalScreenWidth int
	// LogicalScreenHeight bounds the resolved point; 0 disables the check.
	LogicalScreenHeight int
}

// Locator runs the coarse-to-fine protocol against an injected vision
// service.
type Locator struct {
	cfg    Config
	vision VisionService
}

// NewLocator builds a locator. The vision service must not be nil.
func NewLocator(cfg Config, vs VisionService) (*Locator, error) {
	if vs == nil {
		return nil, fmt.Errorf("locate: vision service is required")
	}
	if cfg.LogicalScreenWidth <= 0 {
		return nil, fmt.Errorf("locate: logical screen width must be positive")
	}
	return &Locator{cfg: cfg, vision: vs}, nil
}

// coarseResponse is the expected shape of the coarse-phase reply.
type coarseResponse struct {
	Found  bool    `json:"found"`
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Reason string  `json:"reason"`
}

// fineResponse is the expected shape of the fine-phase reply, expressed as
// fractions of the crop's own dimensions.
type fineResponse struct {
	Found    bool    `json:"found"`
	XPercent float64 `json:"x_percent"`
	YPercent float64 `json:"y_percent"`
	Reason   string  `json:"reason"`
}

// Locate resolves the logical pointer coordinate of the target described by
// targetDescription within img. Every failure along the protocol yields
// Found=false with a note; a fallback coordinate is never guessed. The only
// error returns are scale-configuration faults and context cancellation.
func (l *Locator) Locate(ctx context.Context, img image.Image, targetDescription string) (Result, error) {
	bounds := img.Bounds()

	scale, err := display.Resolve(bounds.Dx(), l.cfg.LogicalScreenWidth)
	if err != nil {
		return Result{}, fmt.Errorf("locate: %w", err)
	}

	// Coarse phase: bounding box of the region holding the candidate set.
	fullPNG, err := encodePNG(img)
	if err != nil {
		return Result{}, fmt.Errorf("locate: encode image: %w", err)
	}
	coarseRaw, err := l.vision.Query(ctx, fullPNG, coarsePrompt(targetDescription))
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return notFound("coarse query failed: " + err.Error()), nil
	}

	var coarse coarseResponse
	if err := decode.Into(coarseRaw, &coarse); err != nil {
		slog.Debug("Coarse response not decodable", "error", err)
		return notFound("coarse response not decodable"), nil
	}
	if !coarse.Found {
		return notFound(orDefault(coarse.Reason, "no region reported")), nil
	}
	roi := RegionOfInterest{Top: coarse.Top, Left: coarse.Left, Bottom: coarse.Bottom, Right: coarse.Right}
	if err := roi.Validate(); err != nil {
		slog.Debug("Coarse region invalid", "error", err)
		return notFound("coarse region invalid: " + err.Error()), nil
	}

	cropRect := roi.PixelRect(bounds)
	if cropRect.Dx() <= 0 || cropRect.Dy() <= 0 {
		return notFound("coarse region collapsed after clamping"), nil
	}
	crop := imaging.Crop(img, cropRect)

	// Fine phase: precise point within the magnified crop.
	cropPNG, err := encodePNG(crop)
	if err != nil {
		return Result{}, fmt.Errorf("locate: encode crop: %w", err)
	}
	fineRaw, err := l.vision.Query(ctx, cropPNG, finePrompt(targetDescription))
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return notFound("fine query failed: " + err.Error()), nil
	}

	var fine fineResponse
	if err := decode.Into(fineRaw, &fine); err != nil {
		slog.Debug("Fine response not decodable", "error", err)
		return notFound("fine response not decodable"), nil
	}
	if !fine.Found {
		return notFound(orDefault(fine.Reason, "target not found in region")), nil
	}
	if !validFraction(fine.XPercent) || !validFraction(fine.YPercent) {
		return notFound("fine point outside crop"), nil
	}

	// Compose: crop fraction -> crop pixel offset -> absolute physical
	// pixel -> logical pointer coordinate.
	physical := image.Point{
		X: cropRect.Min.X + int(math.Round(fine.XPercent*float64(cropRect.Dx()))),
		Y: cropRect.Min.Y + int(math.Round(fine.YPercent*float64(cropRect.Dy()))),
	}
	logical := display.ToLogical(physical, scale)
	logical = l.clampLogical(logical)

	slog.Debug("Located target",
		"target", targetDescription,
		"crop", cropRect,
		"physical", physical,
		"logical", logical,
		"scale", scale)

	return Result{Found: true, Point: logical, ConfidenceNote: fine.Reason}, nil
}

// clampLogical keeps the resolved point within the logical screen bounds.
func (l *Locator) clampLogical(p image.Point) image.Point {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X >= l.cfg.LogicalScreenWidth {
		p.X = l.cfg.LogicalScreenWidth - 1
	}
	if l.cfg.LogicalScreenHeight > 0 && p.Y >= l.cfg.LogicalScreenHeight {
		p.Y = l.cfg.LogicalScreenHeight - 1
	}
	return p
}

func validFraction(v float64) bool {
	return !math.IsNaN(v) && v >= 0.0 && v <= 1.0
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
