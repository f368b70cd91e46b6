// Package pipeline orchestrates the capture-to-publish flow: screenshot,
// text recognition, dialect detection, field extraction, normalization,
// validation, optional user confirmation, and publishing. Each stage is an
// injected capability, so any stage can be replaced in tests or reused
// standalone from the CLI and server.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/chartflow/chartflow/internal/capture"
	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/extract"
	"github.com/chartflow/chartflow/internal/locate"
	"github.com/chartflow/chartflow/internal/publish"
	"github.com/chartflow/chartflow/internal/recognition"
)

// Config holds pipeline behavior settings. Service endpoints live in the
// respective package configs; this only carries orchestration policy.
type Config struct {
	// ConfidenceThreshold filters recognized lines before extraction.
	ConfidenceThreshold float64
	// DialectOverride skips detection and forces a profile ID when set.
	DialectOverride string
	// RequiredFields overrides the default validation field set when set.
	RequiredFields []string
	// DateLocaleHint biases ambiguous slash dates ("eu" for day-first).
	DateLocaleHint string
	// DisplayIndex selects which display to capture.
	DisplayIndex int
	// RequireConfirmation pauses incomplete records for user correction
	// instead of failing validation outright. Needs a Confirmer.
	RequireConfirmation bool
	// PublishRetries bounds the retry attempts for transient publish errors.
	PublishRetries int
	// PublishBackoffBase is the first retry delay; it doubles per attempt.
	PublishBackoffBase time.Duration
	// BatchWorkers bounds the per-record workers in batch mode.
	BatchWorkers int
}

// DefaultConfig returns orchestration defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: recognition.DefaultConfidenceThreshold,
		PublishRetries:      3,
		PublishBackoffBase:  500 * time.Millisecond,
		BatchWorkers:        4,
	}
}

// Pipeline runs the extraction flow. Build one with a Builder.
type Pipeline struct {
	cfg       Config
	capture   capture.Service
	recognize recognition.Service
	extractor *extract.Extractor
	profiles  []dialect.Profile
	locator   *locate.Locator
	publisher publish.Publisher
	confirmer Confirmer
	onStage   StageCallback
}

// WithStageCallback returns a shallow copy of the pipeline with a different
// stage observer. Lets one shared pipeline stream transitions to a specific
// session.
func (p *Pipeline) WithStageCallback(cb StageCallback) *Pipeline {
	q := *p
	q.onStage = cb
	return &q
}

// RunWithCallback runs one cycle with a per-run stage observer.
func (p *Pipeline) RunWithCallback(ctx context.Context, cb StageCallback) RunResult {
	return p.WithStageCallback(cb).Run(ctx)
}

// Builder assembles a Pipeline from its stage services.
type Builder struct {
	cfg       Config
	capture   capture.Service
	recognize recognition.Service
	profiles  []dialect.Profile
	locator   *locate.Locator
	publisher publish.Publisher
	confirmer Confirmer
	onStage   StageCallback
}

// NewBuilder starts a builder with default configuration.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the orchestration config.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithCapture sets the screen capture service.
func (b *Builder) WithCapture(c capture.Service) *Builder {
	b.capture = c
	return b
}

// WithRecognizer sets the text recognition service.
func (b *Builder) WithRecognizer(r recognition.Service) *Builder {
	b.recognize = r
	return b
}

// WithProfiles replaces the dialect profile set.
func (b *Builder) WithProfiles(p []dialect.Profile) *Builder {
	b.profiles = p
	return b
}

// WithLocator attaches an on-screen locator for interactive targeting.
func (b *Builder) WithLocator(l *locate.Locator) *Builder {
	b.locator = l
	return b
}

// WithPublisher sets the record publisher.
func (b *Builder) WithPublisher(p publish.Publisher) *Builder {
	b.publisher = p
	return b
}

// WithConfirmer sets the correction source for incomplete records.
func (b *Builder) WithConfirmer(c Confirmer) *Builder {
	b.confirmer = c
	return b
}

// WithStageCallback registers an observer for state transitions.
func (b *Builder) WithStageCallback(cb StageCallback) *Builder {
	b.onStage = cb
	return b
}

// Build validates the wiring and returns the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.recognize == nil {
		return nil, errors.New("pipeline: recognizer is required")
	}
	if b.publisher == nil {
		return nil, errors.New("pipeline: publisher is required")
	}
	if b.cfg.RequireConfirmation && b.confirmer == nil {
		return nil, errors.New("pipeline: confirmation enabled without a confirmer")
	}
	cfg := b.cfg
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = recognition.DefaultConfidenceThreshold
	}
	if cfg.PublishRetries < 0 {
		cfg.PublishRetries = 0
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 1
	}
	profiles := b.profiles
	if profiles == nil {
		profiles = dialect.DefaultProfiles()
	}
	capSvc := b.capture
	if capSvc == nil {
		capSvc = capture.NewScreen()
	}
	return &Pipeline{
		cfg:       cfg,
		capture:   capSvc,
		recognize: b.recognize,
		extractor: extract.NewExtractor(extract.Config{DateLocaleHint: cfg.DateLocaleHint}),
		profiles:  profiles,
		locator:   b.locator,
		publisher: b.publisher,
		confirmer: b.confirmer,
		onStage:   b.onStage,
	}, nil
}
