package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ifvg/internal/metrics"
	"github.com/rustyeddy/ifvg/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scans over HTTP",
	Long: `Start the HTTP service.

Endpoints:
  POST /v1/scan  - scan one bar series sent as JSON
  GET  /health   - liveness
  GET  /metrics  - Prometheus metrics

Example:
  ifvg serve --addr :8080 --config ifvg.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts, err := cfg.Options()
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	scfg := server.DefaultConfig()
	if cfg.Server.Addr != "" {
		scfg.Addr = cfg.Server.Addr
	}
	if serveAddr != "" {
		scfg.Addr = serveAddr
	}

	options := []server.Option{
		server.WithLogger(log.Logger),
		server.WithMetrics(metrics.New()),
	}
	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
		options = append(options, server.WithJournal(j))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(scfg, opts, options...).Run(ctx)
}
