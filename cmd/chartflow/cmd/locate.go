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
)

var locateCmd = &cobra.Command{
	Use:   "locate FILE",
	Short: "Resolve the pointer coordinate of a target in a screenshot",
	Long: `Runs the coarse-to-fine localization protocol against a screenshot file
and prints the resolved logical coordinate. If no logical screen width is
configured the image is treated as scale 1.0.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		if target == "" {
			return fmt.Errorf("--target is required")
		}

		img, err := imaging.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}

		vs, err := buildVision(globalConfig)
		if err != nil {
			return err
		}
		locator, err := buildLocator(globalConfig, vs, img.Bounds().Dx())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := locator.Locate(ctx, img, target)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	locateCmd.Flags().String("target", "", "description of the on-screen target")
	rootCmd.AddCommand(locateCmd)
}
