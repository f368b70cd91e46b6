package recognition

import (
	"context"
	"log/slog"
	"strings"

	"github.com/chartflow/chartflow/internal/decode"
	"github.com/chartflow/chartflow/internal/vision"
)

// ocrPrompt requests a line list with confidences. The JSON envelope lets a
// strict decoder recover lines; plain text is accepted as a degraded reply.
const ocrPrompt = `OCR this image. Extract every visible line of text, preserving reading order.

Output JSON:
{"lines": [{"text": "...", "confidence": 0.98}, ...]}
Confidence is your certainty in [0,1] for each line. If no text is visible,
output {"lines": []}`

// Remote recognizes text by querying a vision model. It never fails on
// malformed structure: a reply that does not decode as a line list is
// treated as raw text with full confidence, so downstream filtering still
// applies uniformly.
type Remote struct {
	vision vision.Service
}

// NewRemote builds a vision-backed recognizer.
func NewRemote(vs vision.Service) *Remote {
	return &Remote{vision: vs}
}

type lineList struct {
	Lines []Line `json:"lines"`
}

// Recognize implements Service.
func (r *Remote) Recognize(ctx context.Context, imagePNG []byte) ([]Line, error) {
	raw, err := r.vision.Query(ctx, imagePNG, ocrPrompt)
	if err != nil {
		return nil, err
	}

	var decoded lineList
	if err := decode.Into(raw, &decoded); err == nil {
		return decoded.Lines, nil
	}

	slog.Debug("Recognition reply not structured, using raw text")
	var lines []Line
	for _, t := range strings.Split(raw, "\n") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		lines = append(lines, Line{Text: t, Confidence: 1.0})
	}
	return lines, nil
}
