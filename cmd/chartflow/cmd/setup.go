package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chartflow/chartflow/internal/config"
	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/locate"
	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/pipeline"
	"github.com/chartflow/chartflow/internal/publish"
	"github.com/chartflow/chartflow/internal/recognition"
	"github.com/chartflow/chartflow/internal/vision"
)

// buildVision constructs the vision client from the loaded configuration.
func buildVision(cfg config.Config) (vision.Service, error) {
	return vision.NewClient(cfg.ToVisionConfig())
}

// buildLocator wires the coarse-to-fine locator; fallbackWidth is used when
// no logical screen width is configured (offline files are treated as
// scale 1.0).
func buildLocator(cfg config.Config, vs vision.Service, fallbackWidth int) (*locate.Locator, error) {
	lc := locate.Config{
		LogicalScreenWidth:  cfg.Vision.LogicalScreenWidth,
		LogicalScreenHeight: cfg.Vision.LogicalScreenHeight,
	}
	if lc.LogicalScreenWidth <= 0 {
		lc.LogicalScreenWidth = fallbackWidth
	}
	return locate.NewLocator(lc, vs)
}

// loadProfiles returns the configured dialect profile set.
func loadProfiles(cfg config.Config) ([]dialect.Profile, error) {
	if cfg.ProfileFile == "" {
		return dialect.DefaultProfiles(), nil
	}
	return dialect.LoadProfiles(cfg.ProfileFile)
}

// buildPublisher picks the real client or a local dry-run sink.
func buildPublisher(cfg config.Config, dryRun bool) (publish.Publisher, error) {
	if dryRun {
		return &dryRunPublisher{}, nil
	}
	pc := cfg.ToPublishConfig()
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	return publish.NewClient(pc), nil
}

// buildPipeline assembles the full pipeline from the loaded configuration.
func buildPipeline(cfg config.Config, publisher publish.Publisher, confirmer pipeline.Confirmer, confirm bool) (*pipeline.Pipeline, error) {
	vs, err := buildVision(cfg)
	if err != nil {
		return nil, err
	}
	profiles, err := loadProfiles(cfg)
	if err != nil {
		return nil, err
	}

	pcfg := cfg.ToPipelineConfig()
	pcfg.RequireConfirmation = confirm

	b := pipeline.NewBuilder().
		WithConfig(pcfg).
		WithRecognizer(recognition.NewRemote(vs)).
		WithProfiles(profiles).
		WithPublisher(publisher)
	if confirm {
		b = b.WithConfirmer(confirmer)
	}
	if cfg.Vision.LogicalScreenWidth > 0 {
		locator, err := buildLocator(cfg, vs, 0)
		if err != nil {
			return nil, err
		}
		b = b.WithLocator(locator)
	}
	return b.Build()
}

// dryRunPublisher prints records instead of sending them.
type dryRunPublisher struct{}

func (d *dryRunPublisher) CreateOrUpdate(_ context.Context, rec patient.Record) (publish.Result, error) {
	slog.Info("Dry run: record not published",
		"external_patient_id", rec.ExternalPatientID,
		"last_name", rec.LastName,
		"first_name", rec.FirstName,
		"birth_date", rec.BirthDate,
		"gender", rec.Gender)
	return publish.Result{Action: "demo", ID: "dry-run", Demo: true}, nil
}

func (d *dryRunPublisher) DemoMode() bool { return true }

// reportResult prints a run outcome and converts failures into a CLI error.
func reportResult(res pipeline.RunResult) error {
	if res.State == pipeline.StateSucceeded {
		fmt.Printf("Published record %s (%s): %s %s\n",
			res.Record.ExternalPatientID, res.Publish.Action,
			res.Record.LastName, res.Record.FirstName)
		if res.Publish.Demo {
			fmt.Println("NOTE: demo mode, nothing was actually published")
		}
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("run failed at %s: %w", res.FailedStage, res.Err)
	}
	return errors.New("run failed")
}
