package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/logging"
	"github.com/ludo-technologies/solscan/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		host       string
		port       int
		debug      bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the vulnerability detection HTTP service",
		Long: `Start the HTTP service exposing the scanner.

Routes:
  GET  /health
  POST /api/ml/analyze
  POST /api/ml/batch
  GET  /api/ml/patterns
  GET  /api/ml/history

ML_SERVICE_PORT and ML_SERVICE_DEBUG are honored for compatibility.

Examples:
  solscan serve
  solscan serve --port 8080 --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("debug") {
				cfg.Server.Debug = debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Listen host")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "Listen port")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug mode and logging")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewService(cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	svc, cleanup, err := newScanService(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("starting vulnerability detection service",
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("debug", cfg.Server.Debug),
		zap.String("storage", cfg.Storage.Driver),
	)

	return server.New(cfg.Server, cfg.Storage.HistoryLimit, svc, logger).Run(ctx)
}
