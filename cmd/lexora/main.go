package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lexora-app/lexora/internal/adapters/cli"
	"github.com/lexora-app/lexora/internal/adapters/mcp"
	"github.com/lexora-app/lexora/internal/bootstrap"
	"github.com/lexora-app/lexora/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, build); err != nil {
		os.Exit(1)
	}
}

func build(cfg config.Config, logger *slog.Logger) (*cli.Services, error) {
	app, err := bootstrap.NewLocal(cfg)
	if err != nil {
		return nil, err
	}
	server := mcp.NewServer(app.AnalyzeUC, app.ChatUC, logger)
	return &cli.Services{
		Analyzer: app.AnalyzeUC,
		Chat:     app.ChatUC,
		Rules:    app.Rules,
		ServeMCP: server.ServeStdio,
		Close:    app.Close,
	}, nil
}
