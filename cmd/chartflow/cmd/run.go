package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture the screen, extract one patient record, and publish it",
	Long: `Runs one full capture-to-publish cycle: screenshot, text recognition,
dialect detection, extraction, validation, and publishing.

With --confirm, an incomplete record pauses for interactive correction
instead of failing. With --dry-run the record is printed, not published.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		publisher, err := buildPublisher(globalConfig, dryRun)
		if err != nil {
			return err
		}
		pl, err := buildPipeline(globalConfig, publisher, promptConfirmer{}, confirm)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return reportResult(pl.Run(ctx))
	},
}

func init() {
	runCmd.Flags().Bool("confirm", false, "pause incomplete records for interactive correction")
	runCmd.Flags().Bool("dry-run", false, "print the record instead of publishing it")
	rootCmd.AddCommand(runCmd)
}

// promptConfirmer collects missing field values on the terminal. An empty
// answer leaves the field empty; answering "abort" at any prompt abandons
// the run.
type promptConfirmer struct{}

func (promptConfirmer) Confirm(ctx context.Context, rec patient.Record, missing []string) (patient.Record, bool, error) {
	fmt.Printf("Record incomplete, missing: %s\n", strings.Join(missing, ", "))
	fmt.Println("Enter values (empty to skip, 'abort' to abandon):")

	scanner := bufio.NewScanner(os.Stdin)
	var corr patient.Record
	for _, field := range missing {
		if err := ctx.Err(); err != nil {
			return patient.Record{}, false, err
		}
		fmt.Printf("  %s: ", field)
		if !scanner.Scan() {
			return patient.Record{}, false, scanner.Err()
		}
		val := strings.TrimSpace(scanner.Text())
		if val == "abort" {
			return patient.Record{}, false, nil
		}
		switch field {
		case "first_name":
			corr.FirstName = val
		case "last_name":
			corr.LastName = val
		case "birth_date":
			corr.BirthDate = val
		case "gender":
			corr.Gender = patient.Gender(val)
		case "external_patient_id":
			corr.ExternalPatientID = val
		}
	}
	return corr, true, nil
}

var _ pipeline.Confirmer = promptConfirmer{}
