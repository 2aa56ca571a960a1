package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/store"
	"github.com/ludo-technologies/solscan/service"
)

// newScanService builds the scan service for cfg. When storage is configured
// the returned cleanup closes the result store.
func newScanService(ctx context.Context, cfg *config.Config, logger *zap.Logger, pm domain.ProgressManager) (*service.ScanServiceImpl, func(), error) {
	opts := []service.ScanServiceOption{
		service.WithLogger(logger),
	}
	if pm != nil {
		opts = append(opts, service.WithProgress(pm))
	}

	cleanup := func() {}
	if cfg.Storage.Enabled() {
		st, err := store.OpenFromConfig(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open result store: %w", err)
		}
		opts = append(opts, service.WithStore(st))
		cleanup = func() {
			if err := st.Close(); err != nil {
				logger.Warn("failed to close result store", zap.Error(err))
			}
		}
	}

	svc, err := service.NewScanServiceFromConfig(cfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
