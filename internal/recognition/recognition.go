// Package recognition defines the text recognition boundary. Recognized
// lines carry a confidence score; callers filter below-threshold lines
// before extraction, because low-confidence OCR noise corrupts the regex
// tables more than a dropped line does.
package recognition

import (
	"context"
	"strings"
)

// DefaultConfidenceThreshold is applied when a caller does not configure one.
const DefaultConfidenceThreshold = 0.6

// Line is one recognized text line with its confidence in [0,1].
type Line struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Service is the capability contract for turning an image into text lines.
type Service interface {
	Recognize(ctx context.Context, imagePNG []byte) ([]Line, error)
}

// Filter joins the text of all lines at or above threshold, newline
// separated, in recognition order. A threshold <= 0 falls back to the
// default.
func Filter(lines []Line, threshold float64) string {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	var kept []string
	for _, l := range lines {
		if l.Confidence >= threshold {
			kept = append(kept, l.Text)
		}
	}
	return strings.Join(kept, "\n")
}
