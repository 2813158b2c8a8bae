package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/lexora-app/lexora/internal/adapters/http"
	"github.com/lexora-app/lexora/internal/bootstrap"
	"github.com/lexora-app/lexora/internal/config"
	"github.com/lexora-app/lexora/internal/observability/logging"
	"github.com/lexora-app/lexora/internal/observability/metrics"
)

const serviceName = "lexora-api"

func main() {
	cfg := config.Load()
	logger := logging.Install(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:          logger,
		BreakerObserver: httpMetrics.BreakerObserver(serviceName),
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Without a broker the API drains its own queue.
	if cfg.QueueBackend == config.QueueBackendInproc {
		go func() {
			err := app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
				processCtx, cancel := context.WithTimeout(handlerCtx, cfg.ProcessTimeout())
				defer cancel()
				return app.ProcessUC.ProcessByID(processCtx, documentID)
			})
			if err != nil {
				logger.Error("inproc_processor_stopped", "error", err)
			}
		}()
	}

	router := httpadapter.NewRouter(cfg, app.AnalyzeUC, app.IngestUC, app.ReaderUC, app.ChatUC).
		WithMetrics(httpMetrics).
		WithLogger(logger).
		Handler()
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api_listening",
			"port", cfg.APIPort,
			"queue_backend", cfg.QueueBackend,
			"session_backend", cfg.SessionBackend,
			"max_connections", cfg.APIMaxConnections,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
