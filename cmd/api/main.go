package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/resper/paperless-onS/internal/adapters/http"
	"github.com/resper/paperless-onS/internal/bootstrap"
	"github.com/resper/paperless-onS/internal/config"
	"github.com/resper/paperless-onS/internal/observability/logging"
	"github.com/resper/paperless-onS/internal/observability/metrics"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.NewJSONLogger("api", "info").Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Pipeline: httpMetrics.Pipeline()})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := cfg.CredentialsError(); err != nil {
		logger.Warn("credentials_incomplete", "error", err)
	}

	router, err := httpadapter.NewRouter(cfg, app.HTTPDependencies(), httpMetrics, logger)
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Synchronous processing waits on the model.
		WriteTimeout: time.Duration(cfg.OpenAITimeoutSec+cfg.PaperlessTimeoutSec+30) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "queue_enabled", app.Queue != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
