package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resper/paperless-onS/internal/bootstrap"
	"github.com/resper/paperless-onS/internal/config"
	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/observability/logging"
	"github.com/resper/paperless-onS/internal/observability/metrics"
)

const (
	serviceName    = "worker"
	processTimeout = 5 * time.Minute
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.NewJSONLogger(serviceName, "info").Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Pipeline: workerMetrics.Pipeline()})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	if app.Queue == nil {
		logger.Error("worker_requires_queue", "hint", "set NATS_URL")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	handle := func(handlerCtx context.Context, req domain.ProcessRequest) error {
		workerMetrics.ObserveQueueLag(serviceName, req.EnqueuedAt)
		workerMetrics.StartRequest()
		started := time.Now()

		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()
		result, err := app.ProcessUC.Process(processCtx, req)
		workerMetrics.FinishRequest(serviceName, time.Since(started), err)
		if err != nil {
			return err
		}
		logger.Info("document_processed",
			"document_id", req.DocumentID,
			"metadata_updated", result.MetadataUpdated,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return nil
	}

	concurrency := max(cfg.WorkerConcurrency, 1)
	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", concurrency)

	// Each subscriber in the queue group gets its own delivery goroutine.
	group, groupCtx := errgroup.WithContext(ctx)
	for range concurrency {
		group.Go(func() error {
			return app.Queue.SubscribeProcessRequests(groupCtx, handle)
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
