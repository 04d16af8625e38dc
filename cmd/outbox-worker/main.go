package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/wolfman30/nagrik-sahayak/cmd/mainconfig"
	"github.com/wolfman30/nagrik-sahayak/internal/app/bootstrap"
	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).WithComponent("outbox_worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("outbox worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("outbox worker stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("outbox worker requires DATABASE_URL")
	}

	var sqsClient events.SQSAPI
	if cfg.EventSink == "sqs" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}
		sqsClient = sqs.NewFromConfig(awsCfg)
	}
	handler, closeHandler, err := bootstrap.BuildEventHandler(cfg, sqsClient, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeHandler(); err != nil {
			logger.Warn("failed to close event sink", "error", err)
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), handler, logger).
		WithInterval(cfg.OutboxPollInterval).
		WithBatchSize(int32(cfg.OutboxBatchSize))

	logger.Info("outbox worker started", "sink", cfg.EventSink, "interval", cfg.OutboxPollInterval)
	deliverer.Start(ctx)
	return nil
}
