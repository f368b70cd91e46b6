package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/chartflow/chartflow/internal/pipeline"
	"github.com/chartflow/chartflow/internal/recognition"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract a patient record from a screenshot file",
	Long: `Runs recognition, dialect detection, extraction and validation on a
screenshot file and prints the resulting record as JSON. Nothing is
published.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := imaging.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}

		vs, err := buildVision(globalConfig)
		if err != nil {
			return err
		}
		profiles, err := loadProfiles(globalConfig)
		if err != nil {
			return err
		}
		pl, err := pipeline.NewBuilder().
			WithConfig(globalConfig.ToPipelineConfig()).
			WithRecognizer(recognition.NewRemote(vs)).
			WithProfiles(profiles).
			WithPublisher(&dryRunPublisher{}).
			Build()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rec, det, validation, err := pl.ProcessImage(ctx, img)
		if err != nil {
			return err
		}

		out := map[string]any{
			"record":     rec,
			"dialect":    det,
			"validation": validation,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
