package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"content-assist/handler"
	"content-assist/internal/bootstrap"
	"content-assist/internal/config"
	"content-assist/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, JSON: true, Output: os.Stdout})
	slog.SetDefault(logger)

	// ---- Service ----
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire assist service", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	// ---- Handler ----
	h, err := handler.NewHandler(app.Assist, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
