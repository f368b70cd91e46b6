package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chartflow/chartflow/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Capture once and publish every patient record on screen",
	Long: `Captures and recognizes the screen once, splits the text into per-patient
blocks, and processes the blocks concurrently. Records that fail are reported
individually; the rest still publish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		publisher, err := buildPublisher(globalConfig, dryRun)
		if err != nil {
			return err
		}
		pl, err := buildPipeline(globalConfig, publisher, nil, false)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		batch, err := pl.RunBatch(ctx)
		if err != nil {
			return err
		}

		for i, res := range batch.Results {
			if res.State == pipeline.StateSucceeded {
				fmt.Printf("[%d] %s %s (%s): %s\n", i+1,
					res.Record.LastName, res.Record.FirstName,
					res.Record.ExternalPatientID, res.Publish.Action)
			} else {
				fmt.Printf("[%d] FAILED at %s: %v\n", i+1, res.FailedStage, res.Err)
			}
		}
		fmt.Printf("%d/%d records published\n", len(batch.Results)-batch.Failed, len(batch.Results))
		if batch.Failed > 0 {
			return fmt.Errorf("%d of %d records failed", batch.Failed, len(batch.Results))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().Bool("dry-run", false, "print records instead of publishing them")
	rootCmd.AddCommand(batchCmd)
}
