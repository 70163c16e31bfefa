// Package main is the entry point for the Keeper server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/app"
	"keeper.dev/keeper/internal/config"
	"keeper.dev/keeper/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting Keeper",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("store", cfg.Database.Driver),
		zap.String("gateway", cfg.Gateway.Kind),
		zap.Int64("paid_channel_id", cfg.Access.PaidChannelID),
	)
	if cfg.Gateway.Kind == config.GatewayLog {
		logger.Warn("Messaging gateway is log-only: notices, revocations, admissions and posts are not delivered")
	}

	// Bootstrap application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer application.Shutdown()
	logComposition(application)

	// Sweeps share the store with request handlers; per-key atomicity lives
	// in the store, so the scheduler needs no coordination with HTTP.
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start background services: %w", err)
	}

	// HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      application.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// logComposition records which modules and sweeps this process runs.
func logComposition(a *app.Application) {
	names := make([]string, 0, len(a.Modules))
	for _, m := range a.Modules {
		names = append(names, m.Name())
	}
	logger.Info("Modules composed", zap.Strings("modules", names))

	for _, j := range a.Scheduler.Jobs() {
		logger.Info("Sweep scheduled", zap.String("job", j.Name), zap.String("cadence", j.Cadence))
	}
}
