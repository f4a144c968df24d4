package main

import (
	// Standard library
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"

	// Internal packages
	"github.com/houzhh15/zoomrelay/cmd/server/internal/api"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/audit"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/config"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/zoom"
	"github.com/houzhh15/zoomrelay/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	startTime := time.Now()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.LoggerEnvironment(),
		WithSource:  cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "web-server")

	// run 内的 defer 在退出前全部执行
	if err := run(cfg, logInstance, startTime); err != nil {
		appLogger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}

func run(cfg *config.Config, logInstance *slog.Logger, startTime time.Time) error {
	appLogger := logInstance.With("component", "web-server")

	// Validate configuration
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	appLogger.Debug(cfg.PrintConfig())
	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Zoom client
	zoomCfg, err := cfg.ZoomClientConfig()
	if err != nil {
		return fmt.Errorf("failed to load meeting defaults from %s: %w", cfg.Zoom.MeetingDefaultsFile, err)
	}
	zoomClient, err := zoom.NewClient(zoomCfg)
	if err != nil {
		return fmt.Errorf("zoom client init failed: %w", err)
	}
	appLogger.Info("zoom client ready", "base_url", cfg.Zoom.BaseURL, "max_concurrent", cfg.Zoom.MaxConcurrent)

	// Initialize audit logger
	auditLogger := audit.New(cfg.Audit.Path)
	defer func() {
		if err := audit.Close(auditLogger); err != nil {
			appLogger.Warn("failed to close audit log", "error", err)
		}
	}()
	if cfg.Audit.Path != "" {
		appLogger.Info("audit logger ready", "path", cfg.Audit.Path)
	}

	r := api.NewRouter(api.RouterDeps{
		Service:     zoomClient,
		Audit:       auditLogger,
		Logger:      logInstance,
		CORSOrigins: cfg.Security.CORSAllowedOrigins,
		StartTime:   startTime,
	})

	// Create HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:              cfg.GetServerAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		appLogger.Info("shutdown signal received, shutting down server...", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
