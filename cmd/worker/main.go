package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexora-app/lexora/internal/adapters/inbox"
	"github.com/lexora-app/lexora/internal/bootstrap"
	"github.com/lexora-app/lexora/internal/config"
	"github.com/lexora-app/lexora/internal/observability/logging"
	"github.com/lexora-app/lexora/internal/observability/metrics"
)

const serviceName = "lexora-worker"

func main() {
	cfg := config.Load()
	logger := logging.Install(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:          logger,
		BreakerObserver: workerMetrics.BreakerObserver(),
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetricsMux(workerMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if cfg.InboxDir != "" {
		watcher := inbox.NewWatcher(cfg.InboxDir, app.IngestUC, time.Duration(cfg.InboxSettleMS)*time.Millisecond, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("inbox_watcher_stopped", "dir", cfg.InboxDir, "error", err)
			}
		}()
	}

	logger.Info("worker_subscribed", "queue_backend", cfg.QueueBackend, "subject", cfg.NATSSubject, "group", cfg.NATSQueueGroup)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		var queuedSince time.Time
		if session, err := app.ReaderUC.GetByID(handlerCtx, documentID); err == nil {
			queuedSince = session.UpdatedAt
		}
		done := workerMetrics.Track(queuedSince)

		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.ProcessTimeout())
		defer cancel()
		err := app.ProcessUC.ProcessByID(processCtx, documentID)

		var stage string
		if session, getErr := app.ReaderUC.GetByID(handlerCtx, documentID); getErr == nil {
			stage = string(session.Stage)
		}
		done(err, stage)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func workerMetricsMux(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
