package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/shipcheck/internal/dashboard"
	"github.com/hazz-dev/shipcheck/internal/server"
	"github.com/hazz-dev/shipcheck/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the verification history API and dashboard",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "endpoints", len(cfg.Verify.Endpoints))

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	apiServer := server.New(db, cfg.Verify, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/", dashboard.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving run history on %s\n", cfg.Server.Address)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
