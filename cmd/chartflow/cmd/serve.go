package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chartflow/chartflow/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serves the extraction pipeline over HTTP:

  POST /extract   multipart screenshot -> extracted record
  POST /locate    multipart screenshot + target -> pointer coordinate
  GET  /health    liveness
  GET  /metrics   Prometheus metrics
  GET  /ws/run    WebSocket streaming live capture-to-publish runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		srvCfg := server.DefaultConfig()
		if host != "" {
			srvCfg.Host = host
		} else if globalConfig.Server.Host != "" {
			srvCfg.Host = globalConfig.Server.Host
		}
		if port > 0 {
			srvCfg.Port = port
		} else if globalConfig.Server.Port > 0 {
			srvCfg.Port = globalConfig.Server.Port
		}

		publisher, err := buildPublisher(globalConfig, dryRun)
		if err != nil {
			return err
		}
		pl, err := buildPipeline(globalConfig, publisher, nil, false)
		if err != nil {
			return err
		}
		srv, err := server.NewServer(srvCfg, pl)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.ListenAndServe(ctx, srvCfg)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "bind host (default from config)")
	serveCmd.Flags().Int("port", 0, "bind port (default from config)")
	serveCmd.Flags().Bool("dry-run", false, "never publish; print records instead")
	rootCmd.AddCommand(serveCmd)
}
