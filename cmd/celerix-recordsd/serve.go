package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-records/internal/api"
	"github.com/celerix-dev/celerix-records/internal/catalog"
	"github.com/celerix-dev/celerix-records/internal/config"
	"github.com/celerix-dev/celerix-records/internal/engine"
	"github.com/celerix-dev/celerix-records/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) (err error) {
	if parent == nil {
		parent = context.Background()
	}
	logger := logging.New(cfg.Log)
	defer func() {
		if err != nil {
			logger.Error("Daemon stopped", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	gin.SetMode(gin.ReleaseMode)
	logger.Info("Starting Celerix Records daemon",
		zap.String("version", version),
		zap.String("backend", cfg.Storage.Backend),
	)

	entities, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := engine.Open(ctx, cfg.Storage.Options(), logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
			return
		}
		logger.Info("Persistence complete")
	}()

	srv := api.NewServer(provider, logger, api.Options{
		AllowOrigins:   cfg.CORS.AllowOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		OmitNull:       cfg.Response.OmitNull,
	})
	if err := srv.Mount(ctx, entities); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", zap.String("addr", cfg.HTTP.Addr), zap.Int("entities", len(entities)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received. Draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
