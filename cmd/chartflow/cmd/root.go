package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chartflow/chartflow/internal/config"
	"github.com/chartflow/chartflow/internal/version"
)

var (
	// Global configuration, loaded by the persistent pre-run.
	globalConfig config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chartflow",
	Short: "Extract patient records from EMR screens and publish them",
	Long: `chartflow captures EMR screens, recognizes the on-screen text, detects the
EMR dialect, extracts a structured patient record, and publishes it to the
destination clinical system.

This tool provides:
- One-shot and batch capture-to-publish runs
- Offline extraction from screenshot files
- On-screen target localization for UI automation
- An HTTP/WebSocket server mode

Examples:
  chartflow run --confirm
  chartflow batch
  chartflow extract screenshot.png
  chartflow locate screenshot.png --target "the patient name field"
  chartflow serve --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.Flags().GetBool("version")
		if v {
			ver, commit, date := version.Info()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "chartflow version %s\nCommit: %s\nDate: %s\n", ver, commit, date)
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME/.config/chartflow, /etc/chartflow)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("dialect", "", "force an EMR dialect profile instead of detecting one")
	rootCmd.PersistentFlags().String("date-locale", "", "hint for ambiguous slash dates: us or eu")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("dialect_override", rootCmd.PersistentFlags().Lookup("dialect"))
	_ = viper.BindPFlag("date_locale_hint", rootCmd.PersistentFlags().Lookup("date-locale"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			cfg.LogLevel = "debug"
		}
		config.SetupLogging(cfg.LogLevel)
		globalConfig = cfg
		return nil
	}
}
