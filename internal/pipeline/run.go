package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/extract"
	"github.com/chartflow/chartflow/internal/locate"
	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/publish"
	"github.com/chartflow/chartflow/internal/recognition"
)

// ErrAbandoned is returned when the user declines to confirm an incomplete
// record; nothing is published.
var ErrAbandoned = errors.New("run abandoned at confirmation")

// IncompleteRecordError reports a record that failed validation with
// confirmation disabled.
type IncompleteRecordError struct {
	Missing []string
}

func (e *IncompleteRecordError) Error() string {
	return fmt.Sprintf("record incomplete, missing fields: %v", e.Missing)
}

// Run executes one full capture-to-publish cycle. Capture, recognition and
// extraction are never retried: the screen may have changed, so a fresh run
// is the only sound retry. Only the publish step retries, and only on
// transient errors.
func (p *Pipeline) Run(ctx context.Context) RunResult {
	state := StateIdle

	shot, err := p.stageCapture(ctx, &state)
	if err != nil {
		return p.fail(state, RunResult{}, err)
	}

	rawText, err := p.stageRecognize(ctx, &state, shot.Image)
	if err != nil {
		return p.fail(state, RunResult{}, err)
	}

	return p.processText(ctx, &state, rawText)
}

// processText runs the pure stages plus publish on already-recognized text.
// Shared by Run and the batch path.
func (p *Pipeline) processText(ctx context.Context, state *State, rawText string) RunResult {
	res := RunResult{}

	if err := p.step(ctx, state, StateDetectingDialect); err != nil {
		return p.fail(*state, res, err)
	}
	res.Dialect = p.detect(rawText)

	if err := p.step(ctx, state, StateExtracting); err != nil {
		return p.fail(*state, res, err)
	}
	res.Record = p.extractor.Extract(rawText, res.Dialect.ProfileID)

	for {
		if err := p.step(ctx, state, StateNormalizing); err != nil {
			return p.fail(*state, res, err)
		}
		res.Record = extract.NormalizeRecord(res.Record, p.cfg.DateLocaleHint)

		if err := p.step(ctx, state, StateValidating); err != nil {
			return p.fail(*state, res, err)
		}
		complete, missing := patient.Validate(res.Record, p.cfg.RequiredFields)
		res.Validation = Validation{Complete: complete, MissingFields: missing}
		if complete {
			break
		}

		if !p.cfg.RequireConfirmation || p.confirmer == nil {
			return p.fail(*state, res, &IncompleteRecordError{Missing: missing})
		}
		if err := p.step(ctx, state, StateAwaitingConfirmation); err != nil {
			return p.fail(*state, res, err)
		}
		corrected, proceed, err := p.confirmer.Confirm(ctx, res.Record, missing)
		if err != nil {
			return p.fail(*state, res, fmt.Errorf("confirmation: %w", err))
		}
		if !proceed {
			return p.fail(*state, res, ErrAbandoned)
		}
		res.Record = res.Record.Merge(corrected)
	}

	if err := p.step(ctx, state, StatePublishing); err != nil {
		return p.fail(*state, res, err)
	}
	pubRes, err := p.publishWithRetry(ctx, res.Record)
	if err != nil {
		return p.fail(*state, res, err)
	}
	res.Publish = pubRes

	p.transition(state, StateSucceeded)
	res.State = StateSucceeded
	return res
}

// capturedShot is the capture stage output within a run.
type capturedShot struct {
	Image image.Image
}

func (p *Pipeline) stageCapture(ctx context.Context, state *State) (capturedShot, error) {
	if err := p.step(ctx, state, StateCapturing); err != nil {
		return capturedShot{}, err
	}
	shot, err := p.capture.CaptureDisplay(ctx, p.cfg.DisplayIndex)
	if err != nil {
		return capturedShot{}, fmt.Errorf("capture: %w", err)
	}
	return capturedShot{Image: shot.Image}, nil
}

func (p *Pipeline) stageRecognize(ctx context.Context, state *State, img image.Image) (string, error) {
	if err := p.step(ctx, state, StateRecognizing); err != nil {
		return "", err
	}
	pngData, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	lines, err := p.recognize.Recognize(ctx, pngData)
	if err != nil {
		return "", fmt.Errorf("recognition: %w", err)
	}
	rawText := recognition.Filter(lines, p.cfg.ConfidenceThreshold)
	slog.Debug("Recognition complete", "lines", len(lines), "kept_chars", len(rawText))
	return rawText, nil
}

// detect resolves the dialect, honoring a configured override.
func (p *Pipeline) detect(rawText string) dialect.Detection {
	if p.cfg.DialectOverride != "" {
		return dialect.Detection{
			ProfileID:  p.cfg.DialectOverride,
			Label:      p.cfg.DialectOverride,
			Confidence: 1.0,
		}
	}
	return dialect.Detect(rawText, p.profiles)
}

// publishWithRetry retries only transient publish failures, with doubling
// backoff starting at the configured base.
func (p *Pipeline) publishWithRetry(ctx context.Context, rec patient.Record) (publish.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.PublishRetries; attempt++ {
		if attempt > 0 {
			delay := p.cfg.PublishBackoffBase << (attempt - 1)
			slog.Warn("Transient publish failure, retrying",
				"attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return publish.Result{}, ctx.Err()
			}
		}
		res, err := p.publisher.CreateOrUpdate(ctx, rec)
		if err == nil {
			return res, nil
		}
		var te *publish.TransientError
		if !errors.As(err, &te) {
			return publish.Result{}, err
		}
		lastErr = err
	}
	return publish.Result{}, fmt.Errorf("publish retries exhausted: %w", lastErr)
}

// step checks for cancellation, then transitions. A cancelled context fails
// the run before the next stage starts.
func (p *Pipeline) step(ctx context.Context, state *State, to State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.transition(state, to)
	return nil
}

func (p *Pipeline) transition(state *State, to State) {
	from := *state
	*state = to
	if p.onStage != nil {
		p.onStage(from, to)
	}
	slog.Debug("Pipeline state", "from", from, "to", to)
}

func (p *Pipeline) fail(at State, res RunResult, err error) RunResult {
	slog.Error("Pipeline run failed", "stage", at, "error", err)
	res.FailedStage = at
	res.State = StateFailed
	res.Err = err
	state := at
	p.transition(&state, StateFailed)
	return res
}

// ProcessImage runs the pure stages (recognize through validate) on a
// supplied image, without capture or publish. The offline CLI path and the
// HTTP extract endpoint build on this.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image) (patient.Record, dialect.Detection, Validation, error) {
	pngData, err := encodePNG(img)
	if err != nil {
		return patient.Record{}, dialect.Detection{}, Validation{}, err
	}
	lines, err := p.recognize.Recognize(ctx, pngData)
	if err != nil {
		return patient.Record{}, dialect.Detection{}, Validation{}, fmt.Errorf("recognition: %w", err)
	}
	rawText := recognition.Filter(lines, p.cfg.ConfidenceThreshold)

	det := p.detect(rawText)
	rec := p.extractor.Extract(rawText, det.ProfileID)
	rec = extract.NormalizeRecord(rec, p.cfg.DateLocaleHint)
	complete, missing := patient.Validate(rec, p.cfg.RequiredFields)
	return rec, det, Validation{Complete: complete, MissingFields: missing}, nil
}

// LocateInImage resolves an on-screen target in a supplied image.
func (p *Pipeline) LocateInImage(ctx context.Context, img image.Image, target string) (locate.Result, error) {
	if p.locator == nil {
		return locate.Result{}, errors.New("pipeline: no locator configured")
	}
	return p.locator.Locate(ctx, img, target)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
