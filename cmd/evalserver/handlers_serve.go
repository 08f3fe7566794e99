package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aiqaio/evalserver/internal/config"
)

// runServe implements the serve command: load config, build every
// dependency, run the listeners until a shutdown signal arrives, then drain
// within the configured grace period — the same load/run/signal/drain shape
// as the teacher's runServe in cmd/nexus/handlers_serve.go.
func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting evalserver",
		"version", version,
		"commit", commit,
		"http_port", cfg.Server.Port,
		"grpc_port", cfg.Server.GRPCPort,
		"metrics_port", cfg.Server.MetricsPort,
	)

	srv, err := build(cfg)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	slog.Info("evalserver started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("shutdown signal received, draining")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGracePeriod)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("evalserver stopped gracefully")
	return nil
}
